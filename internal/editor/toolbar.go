package editor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/log"
)

const (
	promptLinkText  = "Enter link text:"
	promptLink      = "Enter link:"
	linkPlaceholder = "https://"
)

// Toolbar applies a toolbar format at the selection. In rich text a nil value
// toggles the format; in markdown the matching syntax is written.
func (e *Editor) Toolbar(ctx context.Context, format string, value any) {
	if !e.live() {
		return
	}
	if value == "check" {
		value = "unchecked"
	}
	if e.mode == ModeRichText {
		if format == "link" {
			e.richLink(ctx)
			return
		}
		e.richFormat(format, value)
		return
	}

	switch {
	case format == "link":
		e.markdownLink(ctx)
	case inlineMarkers[format] != "":
		e.wrapInline(format, inlineMarkers[format])
	default:
		m, ok := blockMarker(format, defaultValue(format, value))
		if !ok {
			log.Warn(log.CatEditor, "unsupported markdown format", "format", format, "value", value)
			return
		}
		e.prefixBlock(m)
	}
}

func (e *Editor) richFormat(format string, value any) {
	sel := e.selection()
	if _, ok := e.eng.Selection(); !ok {
		e.eng.SetSelection(sel, engine.SourceSilent)
	}
	value = defaultValue(format, value)
	current := e.eng.FormatAt(sel.Index, sel.Length)
	if current.Has(format) && fmt.Sprint(current[format]) == fmt.Sprint(value) {
		value = false
	}
	e.eng.Format(format, value, engine.SourceUser)
}

// defaultValue fills in the value a bare toolbar button applies.
func defaultValue(format string, value any) any {
	if value != nil {
		return value
	}
	switch format {
	case "header":
		return 1
	case "list":
		return "bullet"
	}
	return true
}

func (e *Editor) wrapInline(format, mk string) {
	sel := e.selection()
	doc := e.eng.Text()
	runes := []rune(doc)
	end := min(sel.End(), len(runes)-1)
	if sel.Index >= end {
		open, closing := markerPair(mk)
		e.replace(sel.Index, 0, open+closing, nil)
		e.eng.SetSelection(engine.Range{Index: sel.Index + utf8.RuneCountInString(open)}, engine.SourceSilent)
		return
	}

	selected := string(runes[sel.Index:end])
	if e.lastWrap.matches(format, sel.Index, selected, doc) {
		inner := e.lastWrap.inner
		e.lastWrap = nil
		e.replace(sel.Index, end-sel.Index, inner, nil)
		e.eng.SetSelection(engine.Range{Index: sel.Index, Length: utf8.RuneCountInString(inner)}, engine.SourceSilent)
		return
	}

	wrapped := addMarkers(marker{text: mk}, selected, true)
	e.replace(sel.Index, end-sel.Index, wrapped, nil)
	e.eng.SetSelection(engine.Range{Index: sel.Index, Length: utf8.RuneCountInString(wrapped)}, engine.SourceSilent)
	e.lastWrap = &wrapState{
		format:  format,
		index:   sel.Index,
		wrapped: wrapped,
		inner:   selected,
		doc:     e.eng.Text(),
	}
}

func (e *Editor) prefixBlock(m marker) {
	sel := e.selection()
	runes := []rune(e.eng.Text())
	to := sel.End()
	if sel.Length > 0 && to <= len(runes) && runes[to-1] == '\n' {
		to--
	}
	start, end := lineBounds(runes, sel.Index, to)
	if end >= len(runes) {
		end = len(runes) - 1
	}
	block := string(runes[start:end])
	formatted := addMarkers(m, block, false)
	e.replace(start, end-start, formatted, nil)
	e.eng.SetSelection(engine.Range{Index: start + utf8.RuneCountInString(formatted)}, engine.SourceSilent)
}

func (e *Editor) markdownLink(ctx context.Context) {
	sel := e.selection()
	runes := []rune(e.eng.Text())
	end := min(sel.End(), len(runes))
	if sel.Length > 0 {
		selected := string(runes[sel.Index:end])
		if strings.Contains(selected, "\n") {
			return
		}
		href := linkPlaceholder
		if hasScheme(selected) {
			href = selected
		}
		e.insertMarkdownLink(sel.Index, end-sel.Index, selected, href)
		return
	}

	at := e.follow(sel.Index, sel.Index)
	e.prompt(ctx, promptLinkText, "", func(text string, ok bool) {
		if !ok {
			at.stop()
			return
		}
		if hasScheme(text) {
			at.stop()
			e.insertMarkdownLink(at.start, 0, text, text)
			return
		}
		e.prompt(ctx, promptLink, linkPlaceholder, func(href string, ok bool) {
			at.stop()
			if !ok || href == "" {
				href = linkPlaceholder
			}
			e.insertMarkdownLink(at.start, 0, text, href)
		})
	})
}

// insertMarkdownLink writes [text](href) over [index, index+length) and
// selects the href.
func (e *Editor) insertMarkdownLink(index, length int, text, href string) {
	e.replace(index, length, "["+text+"]("+href+")", nil)
	e.eng.SetSelection(engine.Range{
		Index:  index + utf8.RuneCountInString(text) + 3,
		Length: utf8.RuneCountInString(href),
	}, engine.SourceSilent)
}

func (e *Editor) richLink(ctx context.Context) {
	sel := e.selection()
	runes := []rune(e.eng.Text())
	end := min(sel.End(), len(runes))
	if sel.Length > 0 {
		selected := string(runes[sel.Index:end])
		def := linkPlaceholder
		if hasScheme(selected) {
			def = selected
		}
		at := e.follow(sel.Index, end)
		e.prompt(ctx, promptLink, def, func(href string, ok bool) {
			at.stop()
			if !ok || at.end == at.start {
				return
			}
			var value any = href
			if href == "" {
				value = false
			}
			e.eng.FormatText(at.start, at.end-at.start, "link", value, engine.SourceUser)
		})
		return
	}

	at := e.follow(sel.Index, sel.Index)
	e.prompt(ctx, promptLinkText, "", func(text string, ok bool) {
		if !ok || text == "" {
			at.stop()
			return
		}
		def := linkPlaceholder
		if hasScheme(text) {
			def = text
		}
		e.prompt(ctx, promptLink, def, func(href string, ok bool) {
			at.stop()
			if !ok || href == "" {
				return
			}
			e.replace(at.start, 0, text, delta.Attributes{"link": href})
			e.eng.SetSelection(engine.Range{Index: at.start + utf8.RuneCountInString(text)}, engine.SourceSilent)
		})
	})
}

// span follows [start, end) through edits made while a prompt is open.
// Text inserted at either boundary stays outside it.
type span struct {
	start, end int
	stop       func()
}

func (e *Editor) follow(start, end int) *span {
	s := &span{start: start, end: end}
	s.stop = e.eng.OnTextChange(func(change, _ delta.Delta, _ engine.Source) {
		s.start = change.TransformPosition(s.start, false)
		s.end = max(change.TransformPosition(s.end, true), s.start)
	})
	return s
}

// prompt asks the Prompter off the loop and continues on it. Without a
// Prompter the prompt counts as cancelled.
func (e *Editor) prompt(ctx context.Context, message, def string, then func(value string, ok bool)) {
	if e.prompter == nil {
		then("", false)
		return
	}
	e.sched.Go(func() {
		value, ok, err := e.prompter.Prompt(ctx, message, def)
		e.sched.Post(func() {
			if err != nil {
				log.ErrorErr(log.CatEditor, "prompt failed", err, "message", message)
				ok = false
			}
			if !e.live() {
				return
			}
			then(value, ok)
		})
	})
}
