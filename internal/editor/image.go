package editor

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/upload"
)

// UploadFailedMessage is shown when an image could not be uploaded.
const UploadFailedMessage = "Failed to upload image. Was it a valid JPG, PNG, or GIF?"

// pasteDropped are attributes pasted rich content loses.
var pasteDropped = []string{"header", "align", "color", "background"}

var pastedURL = regexp.MustCompile(`https?://\S+`)

// ErrNoUploader is reported when an image arrives and no Uploader is set.
var ErrNoUploader = errors.New("no image uploader configured")

// Clipboard is the content of a paste.
type Clipboard struct {
	Text     string
	HTML     string
	Contents *delta.Delta
	Files    []upload.File
}

// DropImage uploads an image given as a data URL and inserts it at the
// selection. The engine is disabled until the upload finishes.
func (e *Editor) DropImage(ctx context.Context, dataURL, mime string) {
	if !e.live() {
		return
	}
	index := e.stripInlineImages(e.selection().Index)
	e.eng.Enable(false)
	e.notifier.Loading(true)

	f, err := upload.DecodeDataURL(dataURL, mime)
	if err != nil {
		log.ErrorErr(log.CatUpload, "failed to decode dropped image", err)
		e.finishUpload(index, upload.Image{}, err)
		return
	}
	e.startUpload(ctx, index, f)
}

// Paste inserts clipboard content at the selection. A lone image file with
// no HTML goes through the upload pipeline.
func (e *Editor) Paste(ctx context.Context, clip Clipboard) {
	if !e.live() {
		return
	}
	if clip.HTML == "" && len(clip.Files) == 1 && isImageType(clip.Files[0].Type) {
		f := clip.Files[0]
		if f.Name == "" {
			f.Name = uuid.NewString()
		}
		index := e.stripInlineImages(e.selection().Index)
		e.eng.Enable(false)
		e.notifier.Loading(true)
		e.startUpload(ctx, index, f)
		return
	}

	sel := e.selection()
	var pasted delta.Delta
	switch {
	case e.mode == ModeMarkdown:
		pasted = delta.Delta{}.Insert(clip.Text, nil)
	case clip.Contents != nil:
		pasted = cleanPasted(*clip.Contents)
	default:
		pasted = autolinked(clip.Text)
	}
	if pasted.Empty() {
		return
	}
	change := delta.Delta{}.Retain(sel.Index, nil).Delete(sel.Length).Concat(pasted)
	e.eng.UpdateContents(change, engine.SourceUser)
	e.eng.SetSelection(engine.Range{Index: sel.Index + pasted.Length()}, engine.SourceSilent)
}

func isImageType(mime string) bool {
	switch mime {
	case "image/jpeg", "image/gif", "image/png":
		return true
	}
	return false
}

func cleanPasted(d delta.Delta) delta.Delta {
	var out delta.Delta
	for _, op := range d.Ops {
		attrs := op.Attributes.Clone()
		for _, k := range pasteDropped {
			delete(attrs, k)
		}
		switch {
		case op.Embed != nil:
			out = out.InsertEmbed(op.Embed, attrs)
		case op.Insert != "":
			out = out.Insert(op.Insert, attrs)
		}
	}
	return out
}

// autolinked turns text into inserts with every URL carrying a link.
func autolinked(text string) delta.Delta {
	var out delta.Delta
	last := 0
	for _, loc := range pastedURL.FindAllStringIndex(text, -1) {
		out = out.Insert(text[last:loc[0]], nil)
		url := text[loc[0]:loc[1]]
		out = out.Insert(url, delta.Attributes{"link": url})
		last = loc[1]
	}
	return out.Insert(text[last:], nil)
}

// stripInlineImages removes images embedded as base64 data and returns index
// mapped across the removal.
func (e *Editor) stripInlineImages(index int) int {
	var (
		change delta.Delta
		pos    int
		found  bool
	)
	for _, op := range e.eng.Contents().Ops {
		if op.Embed != nil && op.Embed.Kind() == "image" {
			if src, ok := op.Embed.Value().(string); ok && upload.IsBase64Image(src) {
				change = change.Retain(pos, nil).Delete(1)
				pos = 0
				found = true
				continue
			}
		}
		pos += op.Len()
	}
	if !found {
		return index
	}
	e.eng.UpdateContents(change, engine.SourceAPI)
	log.Debug(log.CatUpload, "removed inline base64 images")
	return change.TransformPosition(index, false)
}

func (e *Editor) startUpload(ctx context.Context, index int, f upload.File) {
	if e.uploader == nil {
		e.finishUpload(index, upload.Image{}, ErrNoUploader)
		return
	}
	log.Info(log.CatUpload, "uploading image", "name", f.Name, "type", f.Type, "bytes", len(f.Data))
	e.events.Publish(pubsub.UploadEvent, Activity{Mode: e.mode})
	e.sched.Go(func() {
		img, err := e.uploader.Upload(ctx, f)
		e.sched.Post(func() { e.finishUpload(index, img, err) })
	})
}

// finishUpload re-enables the engine and inserts the image on success.
func (e *Editor) finishUpload(index int, img upload.Image, err error) {
	if e.closed {
		return
	}
	e.eng.Enable(true)
	e.notifier.Loading(false)
	if err != nil {
		log.ErrorErr(log.CatUpload, "image upload failed", err)
		e.notifier.Error(UploadFailedMessage)
		e.events.Publish(pubsub.UploadEvent, Activity{Mode: e.mode, Done: true, Err: err})
		return
	}

	index = min(index, e.eng.Length()-1)
	if e.mode == ModeMarkdown {
		text := "![](" + img.URL + ")"
		e.eng.InsertText(index, text, nil, engine.SourceUser)
		e.eng.SetSelection(engine.Range{Index: index + len([]rune(text))}, engine.SourceSilent)
	} else {
		e.eng.InsertEmbed(index, delta.Embed{"image": img.URL}, engine.SourceUser)
		e.eng.SetSelection(engine.Range{Index: index + 1}, engine.SourceSilent)
	}
	log.Info(log.CatUpload, "image inserted", "url", img.URL, "index", index)
	e.events.Publish(pubsub.UploadEvent, Activity{Mode: e.mode, URL: img.URL, Done: true})
}
