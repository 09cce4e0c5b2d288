package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neospeller/internal/language"
)

func mustLookup(t *testing.T, tag string) *language.Descriptor {
	t.Helper()
	desc, err := language.Lookup(tag)
	require.NoError(t, err)
	return desc
}

// comments filters the comment segments out of a scan.
func comments(segs []Segment) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Class == Comment {
			out = append(out, s)
		}
	}
	return out
}

// reassemble checks that the segments tile the input exactly.
func reassemble(t *testing.T, src string, segs []Segment) {
	t.Helper()
	pos := 0
	var rebuilt string
	for _, s := range segs {
		require.Equal(t, pos, s.Start, "segments must tile the input with no gaps")
		require.LessOrEqual(t, s.End, len(src))
		rebuilt += src[s.Start:s.End]
		pos = s.End
	}
	require.Equal(t, len(src), pos)
	require.Equal(t, src, rebuilt)
}

func TestScanLineComments(t *testing.T) {
	t.Run("python hash comment", func(t *testing.T) {
		src := "x = 1  # this is mispelled\n"
		segs := Scan(src, mustLookup(t, "python"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 1)
		assert.Equal(t, "# this is mispelled", src[cs[0].Start:cs[0].End])
		assert.Equal(t, "#", cs[0].Open)
		assert.Empty(t, cs[0].Close)
		assert.False(t, cs[0].Block)
	})

	t.Run("comment runs to end of text without newline", func(t *testing.T) {
		src := "x = 1  # trailing"
		cs := comments(Scan(src, mustLookup(t, "python")))
		require.Len(t, cs, 1)
		assert.Equal(t, "# trailing", src[cs[0].Start:cs[0].End])
	})

	t.Run("adjacent line comments stay separate", func(t *testing.T) {
		src := "# one\n# two\n"
		cs := comments(Scan(src, mustLookup(t, "python")))
		require.Len(t, cs, 2)
		assert.Equal(t, "# one", src[cs[0].Start:cs[0].End])
		assert.Equal(t, "# two", src[cs[1].Start:cs[1].End])
	})

	t.Run("crlf stays outside the span", func(t *testing.T) {
		src := "x = 1 # note\r\ny = 2\r\n"
		segs := Scan(src, mustLookup(t, "python"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 1)
		assert.Equal(t, "# note", src[cs[0].Start:cs[0].End])
	})
}

func TestScanBlockComments(t *testing.T) {
	t.Run("c block comment", func(t *testing.T) {
		src := "/* teh value */\nint x;"
		segs := Scan(src, mustLookup(t, "c"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 1)
		assert.Equal(t, "/* teh value */", src[cs[0].Start:cs[0].End])
		assert.Equal(t, "/*", cs[0].Open)
		assert.Equal(t, "*/", cs[0].Close)
		assert.True(t, cs[0].Block)
	})

	t.Run("unterminated block extends to end of text", func(t *testing.T) {
		src := "/* open forever"
		segs := Scan(src, mustLookup(t, "c"))
		reassemble(t, src, segs)

		require.Len(t, segs, 1)
		assert.Equal(t, Comment, segs[0].Class)
		assert.Equal(t, len(src), segs[0].End)
		assert.Empty(t, segs[0].Close, "missing close marker must not be invented")
	})

	t.Run("rust nested block comment", func(t *testing.T) {
		src := "/* outer /* inner */ still outer */ fn main() {}"
		segs := Scan(src, mustLookup(t, "rust"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 1)
		assert.Equal(t, "/* outer /* inner */ still outer */", src[cs[0].Start:cs[0].End])
	})

	t.Run("c block comment does not nest", func(t *testing.T) {
		src := "/* a /* b */ int x;"
		cs := comments(Scan(src, mustLookup(t, "c")))
		require.Len(t, cs, 1)
		assert.Equal(t, "/* a /* b */", src[cs[0].Start:cs[0].End])
	})

	t.Run("python docstring wins over string quote", func(t *testing.T) {
		src := "\"\"\"module doc\"\"\"\nx = 1\n"
		segs := Scan(src, mustLookup(t, "python"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 1)
		assert.True(t, cs[0].Block)
		assert.Equal(t, `"""`, cs[0].Open)
	})

	t.Run("lua long bracket comment wins over line marker", func(t *testing.T) {
		src := "--[[ block\ncomment ]]\nlocal x = 1 -- line\n"
		segs := Scan(src, mustLookup(t, "lua"))
		reassemble(t, src, segs)

		cs := comments(segs)
		require.Len(t, cs, 2)
		assert.True(t, cs[0].Block)
		assert.Equal(t, "--[[", cs[0].Open)
		assert.False(t, cs[1].Block)
		assert.Equal(t, "--", cs[1].Open)
	})
}

func TestScanStringMasking(t *testing.T) {
	t.Run("comment marker inside javascript string", func(t *testing.T) {
		src := `const s = "// not a comment";`
		segs := Scan(src, mustLookup(t, "javascript"))
		reassemble(t, src, segs)
		assert.Empty(t, comments(segs))
	})

	t.Run("comment marker inside python string", func(t *testing.T) {
		src := "s = \"# not a comment\"\n# real comment\n"
		cs := comments(Scan(src, mustLookup(t, "python")))
		require.Len(t, cs, 1)
		assert.Equal(t, "# real comment", src[cs[0].Start:cs[0].End])
	})

	t.Run("escaped quote does not close the string", func(t *testing.T) {
		src := `s = "a \" // b" // tail`
		cs := comments(Scan(src, mustLookup(t, "javascript")))
		require.Len(t, cs, 1)
		assert.Equal(t, "// tail", src[cs[0].Start:cs[0].End])
	})

	t.Run("go raw string masks comment markers without escapes", func(t *testing.T) {
		src := "s := `// raw \\` // real"
		cs := comments(Scan(src, mustLookup(t, "go")))
		require.Len(t, cs, 1)
		assert.Equal(t, "// real", src[cs[0].Start:cs[0].End])
	})

	t.Run("bash single quote has no escapes", func(t *testing.T) {
		src := `s='a \' # comment`
		cs := comments(Scan(src, mustLookup(t, "bash")))
		require.Len(t, cs, 1)
		assert.Equal(t, "# comment", src[cs[0].Start:cs[0].End])
	})

	t.Run("unterminated string reverts to code", func(t *testing.T) {
		src := "s = \"never closed # not a comment\ny = 2\n"
		segs := Scan(src, mustLookup(t, "python"))
		reassemble(t, src, segs)

		assert.Empty(t, comments(segs))
		for _, s := range segs {
			assert.Equal(t, Code, s.Class)
		}
	})
}

func TestScanPlainText(t *testing.T) {
	desc := mustLookup(t, "text")

	segs := Scan("just some prose", desc)
	require.Len(t, segs, 1)
	assert.Equal(t, Comment, segs[0].Class)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, len("just some prose"), segs[0].End)

	assert.Empty(t, Scan("", desc))
}

func TestScanEmptyInput(t *testing.T) {
	assert.Empty(t, Scan("", mustLookup(t, "go")))
}
