package delta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// ============================================================================
// Builder
// ============================================================================

func TestInsert_MergesAdjacentTextWithSameAttributes(t *testing.T) {
	d := Delta{}.Insert("ab", nil).Insert("cd", nil).Insert("ef", Attributes{"bold": true})

	require.Len(t, d.Ops, 2)
	require.Equal(t, "abcd", d.Ops[0].Insert)
	require.Equal(t, "ef", d.Ops[1].Insert)
}

func TestInsert_AfterDeleteIsReordered(t *testing.T) {
	d := Delta{}.Retain(2, nil).Delete(3).Insert("x", nil)

	require.Equal(t, []Op{{Retain: 2}, {Insert: "x"}, {Delete: 3}}, d.Ops)
}

func TestDelete_Merges(t *testing.T) {
	d := Delta{}.Delete(1).Delete(2)
	require.Equal(t, []Op{{Delete: 3}}, d.Ops)
}

func TestZeroLengthOpsAreDropped(t *testing.T) {
	d := Delta{}.Insert("", nil).Retain(0, nil).Delete(0)
	require.True(t, d.Empty())
}

func TestLength_CountsEmbedsAsOne(t *testing.T) {
	d := Delta{}.Insert("héllo", nil).InsertEmbed(Embed{"image": "u"}, nil).Insert("\n", nil)
	require.Equal(t, 7, d.Length())
	require.Equal(t, "héllo\uFFFC\n", d.Text())
	require.Equal(t, "héllo\n", d.PlainText())
}

// ============================================================================
// Compose
// ============================================================================

func TestCompose_InsertIntoDocument(t *testing.T) {
	doc := FromText("hello")
	change := Delta{}.Retain(5, nil).Insert(" world", nil)

	require.Equal(t, "hello world\n", doc.Compose(change).Text())
}

func TestCompose_DeleteFromDocument(t *testing.T) {
	doc := FromText("hello world")
	change := Delta{}.Retain(5, nil).Delete(6)

	require.Equal(t, "hello\n", doc.Compose(change).Text())
}

func TestCompose_FormatAndRemoveFormat(t *testing.T) {
	doc := FromText("hello")
	bold := doc.Compose(Delta{}.Retain(5, Attributes{"bold": true}))
	require.Equal(t, Attributes{"bold": true}, bold.Ops[0].Attributes)

	plain := bold.Compose(Delta{}.Retain(5, Attributes{"bold": nil}))
	require.True(t, plain.Equal(doc))
}

func TestCompose_ChangesKeepNullRemovals(t *testing.T) {
	a := Delta{}.Retain(3, Attributes{"bold": true})
	b := Delta{}.Retain(3, Attributes{"bold": nil})

	require.Equal(t, []Op{{Retain: 3, Attributes: Attributes{"bold": nil}}}, a.Compose(b).Ops)
}

func TestCompose_InsertThenDeleteCancels(t *testing.T) {
	a := Delta{}.Insert("abc", nil)
	b := Delta{}.Delete(3)
	require.True(t, a.Compose(b).Empty())
}

func TestCompose_EmbedIsAtomic(t *testing.T) {
	doc := Delta{}.Insert("a", nil).InsertEmbed(Embed{"video": "v"}, nil).Insert("b\n", nil)
	out := doc.Compose(Delta{}.Retain(1, nil).Delete(1))

	require.Equal(t, "ab\n", out.Text())
}

// ============================================================================
// Slice and Lines
// ============================================================================

func TestSlice(t *testing.T) {
	doc := Delta{}.Insert("ab", Attributes{"bold": true}).Insert("cd\n", nil)
	s := doc.Slice(1, 3)

	require.Equal(t, []Op{
		{Insert: "b", Attributes: Attributes{"bold": true}},
		{Insert: "c"},
	}, s.Ops)
	require.Equal(t, "cd\n", doc.Slice(2, -1).Text())
}

func TestLines_CarriesBlockAttributes(t *testing.T) {
	doc := Delta{}.
		Insert("Title", nil).Insert("\n", Attributes{"header": 1}).
		Insert("body\n", nil)

	lines := doc.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "Title", lines[0].Content.Text())
	require.Equal(t, Attributes{"header": 1}, lines[0].Attrs)
	require.Equal(t, 0, lines[0].Index)
	require.Equal(t, "body", lines[1].Content.Text())
	require.Equal(t, 6, lines[1].Index)
}

func TestLines_EmptyLine(t *testing.T) {
	lines := FromText("a\n\nb").Lines()
	require.Len(t, lines, 3)
	require.True(t, lines[1].Content.Empty())
	require.Equal(t, 2, lines[1].Index)
}

// ============================================================================
// JSON
// ============================================================================

func TestJSON_RoundTripNormalizesNumbers(t *testing.T) {
	doc := Delta{}.
		Insert("Title", nil).Insert("\n", Attributes{"header": 2}).
		InsertEmbed(Embed{"image": "https://cdn/x.png"}, nil).Insert("\n", nil)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	got, err := Parse(string(raw))
	require.NoError(t, err)
	require.True(t, got.Equal(doc), "got %s", got)
}

func TestParse_RejectsPlainText(t *testing.T) {
	_, err := Parse("hello")
	require.ErrorIs(t, err, ErrNotDelta)
}

func TestParse_RequiresOps(t *testing.T) {
	_, err := Parse(`{"foo": 1}`)
	require.ErrorIs(t, err, ErrNotDelta)
}

func TestParse_EmptyOps(t *testing.T) {
	d, err := Parse(`{"ops":[]}`)
	require.NoError(t, err)
	require.True(t, d.Empty())
}

func TestMarshal_EmptyDelta(t *testing.T) {
	require.Equal(t, `{"ops":[]}`, Delta{}.String())
}

// ============================================================================
// Markdown
// ============================================================================

func TestMarkdown(t *testing.T) {
	doc := Delta{}.
		Insert("Title", nil).Insert("\n", Attributes{"header": 2}).
		Insert("bold", Attributes{"bold": true}).Insert(" and ", nil).
		Insert("site", Attributes{"link": "https://x.io"}).Insert("\n", nil).
		Insert("one", nil).Insert("\n", Attributes{"list": "ordered"}).
		Insert("two", nil).Insert("\n", Attributes{"list": "ordered"}).
		Insert("x := 1", nil).Insert("\n", Attributes{"code-block": true}).
		InsertEmbed(Embed{"image": "https://cdn/a.png"}, nil).Insert("\n", nil)

	want := "## Title\n" +
		"**bold** and [site](https://x.io)\n" +
		"1. one\n" +
		"2. two\n" +
		"```\n" +
		"x := 1\n" +
		"```\n" +
		"![](https://cdn/a.png)"
	require.Equal(t, want, doc.Markdown())
}

// ============================================================================
// Properties
// ============================================================================

func genDocument(rt *rapid.T) Delta {
	d := Delta{}
	n := rapid.IntRange(0, 6).Draw(rt, "segments")
	for i := 0; i < n; i++ {
		text := rapid.StringMatching(`[a-z \n]{1,8}`).Draw(rt, "text")
		var attrs Attributes
		if rapid.Bool().Draw(rt, "bold") {
			attrs = Attributes{"bold": true}
		}
		d = d.Insert(text, attrs)
	}
	return d.Insert("\n", nil)
}

func TestProperty_SliceConcatenationRebuildsDocument(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := genDocument(rt)
		cut := rapid.IntRange(0, doc.Length()).Draw(rt, "cut")

		left := doc.Slice(0, cut)
		right := doc.Slice(cut, -1)
		rebuilt := New(append(append([]Op{}, left.Ops...), right.Ops...)...)
		require.True(t, rebuilt.Equal(doc))
	})
}

func TestProperty_ComposeLength(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := genDocument(rt)
		at := rapid.IntRange(0, doc.Length()).Draw(rt, "at")
		del := rapid.IntRange(0, doc.Length()-at).Draw(rt, "del")
		ins := rapid.StringMatching(`[a-z]{0,5}`).Draw(rt, "ins")

		change := Delta{}.Retain(at, nil).Delete(del).Insert(ins, nil)
		out := doc.Compose(change)
		require.Equal(t, doc.Length()-del+len(ins), out.Length())
	})
}
