package handlers_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/internal/media"
)

func docMsg(from int64, name string, size int64) *models.Message {
	m := privateMsg(from, "")
	m.Document = &models.Document{FileID: "doc-" + name, FileName: name, FileSize: size}
	return m
}

func TestSettingsCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.dispatch(update(privateMsg(user, "/setprefix [MN] ")))
	e.dispatch(update(privateMsg(user, "/setsuffix _final")))
	e.dispatch(update(privateMsg(user, "/wm @mnbots position=center opacity=70 size=30")))
	e.dispatch(update(privateMsg(user, `/meta title="My Song" artist="Band"`)))

	s, err := e.settings.GetSettings(ctx, user)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.Prefix != "[MN]" || s.Suffix != "_final" {
		t.Fatalf("prefix/suffix = %q/%q", s.Prefix, s.Suffix)
	}
	if s.WatermarkText != "@mnbots" || s.WatermarkPosition != "center" || s.WatermarkOpacity != 70 || s.WatermarkSize != 30 {
		t.Fatalf("watermark = %+v", s)
	}
	if s.MetadataTitle != "My Song" || s.MetadataArtist != "Band" || s.MetadataAlbum != "" {
		t.Fatalf("metadata = %+v", s)
	}

	e.dispatch(update(privateMsg(user, "/settings")))
	text := e.lastText()
	for _, want := range []string{"[MN]", "_final", "center", "70%", "My Song", "Combine Mode: ❌"} {
		if !strings.Contains(text, want) {
			t.Fatalf("settings text missing %q:\n%s", want, text)
		}
	}
}

func TestSettingsCommandErrors(t *testing.T) {
	e := newEnv(t)

	e.dispatch(update(privateMsg(user, "/setwatermark")))
	if !strings.Contains(e.lastText(), "Please provide watermark text") {
		t.Fatalf("text = %q", e.lastText())
	}
	e.dispatch(update(privateMsg(user, "/setwatermark hi opacity=150")))
	if !strings.Contains(e.lastText(), "opacity must be between 0 and 100") {
		t.Fatalf("text = %q", e.lastText())
	}
	e.dispatch(update(privateMsg(user, "/setmetadata")))
	if !strings.Contains(e.lastText(), "Please provide metadata") {
		t.Fatalf("text = %q", e.lastText())
	}
	e.dispatch(update(privateMsg(user, `/setmetadata genre="x"`)))
	if !strings.Contains(e.lastText(), "Invalid format") {
		t.Fatalf("text = %q", e.lastText())
	}

	s, _ := e.settings.GetSettings(context.Background(), user)
	if s.WatermarkText != "" || s.MetadataTitle != "" {
		t.Fatalf("settings changed by invalid commands: %+v", s)
	}
}

func TestRenameQueuesPluginAndCountsRename(t *testing.T) {
	e := newEnv(t)
	file := docMsg(user, "report.pdf", 1024)
	cmd := privateMsg(user, "/r Annual Report")
	cmd.ReplyToMessage = file
	e.dispatch(update(cmd))

	calls := e.runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("runs = %d", len(calls))
	}
	c := calls[0]
	if c.plugin.Name() != "rename" || c.req.NewName != "Annual Report" || c.req.ReplyTo != file.ID {
		t.Fatalf("call = %+v", c.req)
	}
	if c.req.StatusMessageID != 900 || c.req.Files[0].FileID != "doc-report.pdf" {
		t.Fatalf("request = %+v", c.req)
	}

	s, _ := e.settings.GetSettings(context.Background(), user)
	if s.RenameCount != 1 {
		t.Fatalf("rename count = %d", s.RenameCount)
	}
}

func TestRenameFailureKeepsCount(t *testing.T) {
	e := newEnv(t)
	e.runner.err = &media.TransformError{Diagnostic: "boom"}
	cmd := privateMsg(user, "/rename x")
	cmd.ReplyToMessage = docMsg(user, "a.pdf", 10)
	e.dispatch(update(cmd))

	s, _ := e.settings.GetSettings(context.Background(), user)
	if s.RenameCount != 0 {
		t.Fatalf("rename count = %d", s.RenameCount)
	}
}

func TestRenameValidation(t *testing.T) {
	e := newEnv(t)

	e.dispatch(update(privateMsg(user, "/rename new")))
	if !strings.Contains(e.lastText(), "reply to a file") {
		t.Fatalf("text = %q", e.lastText())
	}

	cmd := privateMsg(user, "/rename")
	cmd.ReplyToMessage = docMsg(user, "a.pdf", 10)
	e.dispatch(update(cmd))
	if !strings.Contains(e.lastText(), "provide a new name") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.runner.Calls()) != 0 {
		t.Fatal("plugin ran without a valid request")
	}
}

func TestFileTooLarge(t *testing.T) {
	e := newEnv(t)
	cmd := privateMsg(user, "/rename big")
	cmd.ReplyToMessage = docMsg(user, "big.pdf", 21*1024*1024)
	e.dispatch(update(cmd))

	if !strings.Contains(e.lastText(), "too large") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.runner.Calls()) != 0 {
		t.Fatal("oversized file queued")
	}
}

func TestQueueFullIsReported(t *testing.T) {
	e := newEnv(t)
	e.queue.err = media.ErrQueueFull
	cmd := privateMsg(user, "/fileinfo")
	cmd.ReplyToMessage = docMsg(user, "a.mp3", 10)
	e.dispatch(update(cmd))

	if !strings.Contains(e.lastText(), "Too many files") {
		t.Fatalf("text = %q", e.lastText())
	}
}

func TestShowMetadataAndWatermarkCommands(t *testing.T) {
	e := newEnv(t)

	info := privateMsg(user, "/showmetadata")
	info.ReplyToMessage = docMsg(user, "song.mp3", 10)
	e.dispatch(update(info))

	wm := privateMsg(user, "/watermark")
	wm.ReplyToMessage = privateMsg(user, "")
	wm.ReplyToMessage.Video = &models.Video{FileID: "vid", FileName: "clip.mp4", FileSize: 100}
	e.dispatch(update(wm))

	calls := e.runner.Calls()
	if len(calls) != 2 || calls[0].plugin.Name() != "showmetadata" || calls[1].plugin.Name() != "watermark" {
		t.Fatalf("calls = %+v", calls)
	}

	e.dispatch(update(privateMsg(user, "/watermark")))
	if !strings.Contains(e.lastText(), "send a video") {
		t.Fatalf("text = %q", e.lastText())
	}
}

func TestPrivateVideoRunsDefaultPlugin(t *testing.T) {
	e := newEnv(t)
	m := privateMsg(user, "")
	m.Video = &models.Video{FileID: "vid", FileName: "clip.mp4", FileSize: 100, Duration: 3}
	e.dispatch(update(m))

	calls := e.runner.Calls()
	if len(calls) != 1 || calls[0].plugin.Name() != "thumbnail" || calls[0].req.Files[0].FileID != "vid" {
		t.Fatalf("calls = %+v", calls)
	}
	if len(e.client.ForwardList()) != 0 {
		t.Fatal("video was relayed instead of processed")
	}
}

func TestPrivateDocumentOutsideCombineIsRelayed(t *testing.T) {
	e := newEnv(t)
	e.dispatch(update(docMsg(user, "notes.txt", 10)))
	if len(e.client.ForwardList()) != 1 {
		t.Fatal("document not relayed")
	}
	if len(e.runner.Calls()) != 0 {
		t.Fatal("document processed")
	}
}

func TestCombineFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.dispatch(update(privateMsg(user, "/combine")))
	if !strings.Contains(e.lastText(), "Combine Files") {
		t.Fatalf("help text = %q", e.lastText())
	}

	bad := privateMsg(user, "/combine")
	bad.ReplyToMessage = docMsg(user, "a.txt", 10)
	e.dispatch(update(bad))
	if !strings.Contains(e.lastText(), "not supported") {
		t.Fatalf("text = %q", e.lastText())
	}

	start := privateMsg(user, "/merge")
	start.ReplyToMessage = docMsg(user, "part1.mp4", 1000)
	e.dispatch(update(start))
	if !strings.Contains(e.lastText(), "Combine mode started for .mp4") {
		t.Fatalf("text = %q", e.lastText())
	}

	e.dispatch(update(privateMsg(user, "/combine")))
	if !strings.Contains(e.lastText(), "already in combine mode") {
		t.Fatalf("text = %q", e.lastText())
	}

	e.dispatch(update(docMsg(user, "song.mp3", 10)))
	if !strings.Contains(e.lastText(), "expects .mp4") {
		t.Fatalf("text = %q", e.lastText())
	}
	e.dispatch(update(docMsg(user, "part2.mp4", 2000)))
	if !strings.Contains(e.lastText(), "2 files queued") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.client.ForwardList()) != 0 {
		t.Fatal("combine file relayed")
	}

	e.dispatch(update(privateMsg(user, "/finishcombine Movie")))
	calls := e.runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("runs = %d", len(calls))
	}
	plugin, ok := calls[0].plugin.(media.CombinePlugin)
	if !ok || plugin.FileType != ".mp4" {
		t.Fatalf("plugin = %#v", calls[0].plugin)
	}
	if calls[0].req.NewName != "Movie" || len(calls[0].req.Files) != 2 {
		t.Fatalf("request = %+v", calls[0].req)
	}

	session, err := e.settings.GetCombine(ctx, user)
	if err != nil || session != nil {
		t.Fatalf("session after finish = %+v, %v", session, err)
	}
	e.dispatch(update(privateMsg(user, "/cancelcombine")))
	if !strings.Contains(e.lastText(), "not in combine mode") {
		t.Fatalf("text = %q", e.lastText())
	}
}

func TestFinishCombineGuards(t *testing.T) {
	e := newEnv(t)

	e.dispatch(update(privateMsg(user, "/finishcombine")))
	if !strings.Contains(e.lastText(), "not in combine mode") {
		t.Fatalf("text = %q", e.lastText())
	}

	start := privateMsg(user, "/combine")
	start.ReplyToMessage = docMsg(user, "a.pdf", 6*1024*1024)
	e.dispatch(update(start))

	e.dispatch(update(privateMsg(user, "/mergefinish")))
	if !strings.Contains(e.lastText(), "at least 2 files") {
		t.Fatalf("text = %q", e.lastText())
	}

	e.dispatch(update(docMsg(user, "b.pdf", 6*1024*1024)))
	e.dispatch(update(privateMsg(user, "/finishcombine")))
	if !strings.Contains(e.lastText(), "exceeds limit (10MB)") {
		t.Fatalf("text = %q", e.lastText())
	}
	if len(e.runner.Calls()) != 0 {
		t.Fatal("oversized combine queued")
	}

	e.dispatch(update(privateMsg(user, "/mergecancel")))
	if !strings.Contains(e.lastText(), "canceled") {
		t.Fatalf("text = %q", e.lastText())
	}
}
