package testutil

import "github.com/zjrosen/draftpad/internal/delta"

// FormattedDocument is a rich document using a header, bold text, a link,
// a bullet list and an image.
func FormattedDocument() delta.Delta {
	return delta.Delta{}.
		Insert("Title", nil).
		Insert("\n", delta.Attributes{"header": 1}).
		Insert("Some ", nil).
		Insert("bold", delta.Attributes{"bold": true}).
		Insert(" and a ", nil).
		Insert("link", delta.Attributes{"link": "https://example.com"}).
		Insert("\nitem", nil).
		Insert("\n", delta.Attributes{"list": "bullet"}).
		InsertEmbed(delta.Embed{"image": "https://cdn.example.com/a.png"}, nil).
		Insert("\n", nil)
}

// PlainDocument is a rich document with no formatting at all.
func PlainDocument() delta.Delta {
	return delta.FromText("first line\nsecond line\n")
}

// WithStandardDrafts stores a structured draft in richText, a structured
// draft recorded as markdown, a legacy text draft and the new-thread
// composer keys.
func (b *Builder) WithStandardDrafts() *Builder {
	return b.
		WithDraft("reply-1", Contents(FormattedDocument()), Mode("richText")).
		WithDraft("reply-2", Contents(PlainDocument()), Mode("markdown")).
		WithDraft("legacy", Text("hello")).
		WithDraft("new-thread", Contents(PlainDocument())).
		WithKey(DefaultScope+"-active-topic", "General").
		WithKey(DefaultScope+"-post-type", "discussion").
		WithKey("unrelated", "keep")
}
