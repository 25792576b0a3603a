package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"soltron-bot/counter"
	"soltron-bot/pkg/soltron"
	"soltron-bot/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	url     string
	queries []string
}

func (f *fakeResolver) Resolve(_ context.Context, query string) string {
	f.queries = append(f.queries, query)
	return f.url
}

type fakeDownloader struct {
	err   error
	calls int
}

func (f *fakeDownloader) Download(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("GIF89a"), nil
}

type publishCall struct {
	text     string
	mediaIDs []string
}

type fakePlatform struct {
	uploadErr  error
	publishErr error
	uploads    int
	published  []publishCall
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) UploadMedia(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if mimeType != "image/gif" {
		return "", errors.New("unexpected mime type " + mimeType)
	}
	return "media-1", nil
}

func (f *fakePlatform) Publish(_ context.Context, text string, mediaIDs []string) (soltron.PostHandle, error) {
	if f.publishErr != nil {
		return soltron.PostHandle{}, f.publishErr
	}
	f.published = append(f.published, publishCall{text: text, mediaIDs: mediaIDs})
	return soltron.PostHandle{ID: "42", URL: "https://x.com/SoltronBot/status/42"}, nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	resolver   *fakeResolver
	downloader *fakeDownloader
	platform   *fakePlatform
	mem        *storage.Memory
	publisher  *Publisher
}

func newFixture(mediaURL string, dailyCap int) *fixture {
	f := &fixture{
		resolver:   &fakeResolver{url: mediaURL},
		downloader: &fakeDownloader{},
		platform:   &fakePlatform{},
		mem:        storage.NewMemory(),
	}
	c := counter.New(f.mem, dailyCap, func() time.Time { return fixedNow }, testLogger())
	f.publisher = New(f.resolver, c, f.downloader, f.platform, f.mem, testLogger())
	f.publisher.now = func() time.Time { return fixedNow }
	return f
}

var draft = soltron.Draft{
	Strategy:     soltron.StrategyHype,
	Text:         "Soltron rises.",
	MediaQuery:   "ultron",
	MediaCaption: "(Ultron plotting)",
}

func TestPublishWithMedia(t *testing.T) {
	f := newFixture("https://media.giphy.com/a.gif", 15)
	before := testutil.ToFloat64(postsTotal.WithLabelValues("hype", "true"))

	res, err := f.publisher.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.MediaAttached || res.MediaURL != "https://media.giphy.com/a.gif" {
		t.Errorf("Publish() = %+v, want media attached", res)
	}
	if len(f.platform.published) != 1 {
		t.Fatalf("published %d posts, want 1", len(f.platform.published))
	}
	call := f.platform.published[0]
	if call.text != "Soltron rises. (Ultron plotting)" {
		t.Errorf("text = %q", call.text)
	}
	if len(call.mediaIDs) != 1 || call.mediaIDs[0] != "media-1" {
		t.Errorf("mediaIDs = %v", call.mediaIDs)
	}
	if count, _ := f.mem.Counter(); count.Tweets != 1 || count.Date != "2025-06-01" {
		t.Errorf("counter = %+v, want 1 on 2025-06-01", count)
	}
	if got := testutil.ToFloat64(postsTotal.WithLabelValues("hype", "true")) - before; got != 1 {
		t.Errorf("posts_total delta = %v, want 1", got)
	}

	recs := f.mem.Records()
	if len(recs) != 1 || !recs[0].MediaAttached || recs[0].PostURL != "https://x.com/SoltronBot/status/42" {
		t.Errorf("records = %+v", recs)
	}
}

func TestPublishWithoutMediaLeavesCounter(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		query string
	}{
		{name: "resolver empty", url: "", query: "ultron"},
		{name: "no query", url: "https://media.giphy.com/a.gif", query: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.url, 15)
			d := draft
			d.MediaQuery = tt.query

			res, err := f.publisher.Publish(context.Background(), d)
			if err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			if res.MediaAttached {
				t.Error("MediaAttached = true")
			}
			call := f.platform.published[0]
			if call.text != "Soltron rises." || len(call.mediaIDs) != 0 {
				t.Errorf("publish call = %+v, want text only", call)
			}
			if _, ok := f.mem.Counter(); ok {
				t.Error("counter was written without media")
			}
			if f.downloader.calls != 0 || f.platform.uploads != 0 {
				t.Errorf("download/upload ran: %d/%d", f.downloader.calls, f.platform.uploads)
			}
			if res.Stages[0].Stage != StageResolveMedia || res.Stages[0].Outcome != Skip {
				t.Errorf("stages = %+v", res.Stages)
			}
		})
	}
}

func TestPublishCapReached(t *testing.T) {
	f := newFixture("https://media.giphy.com/a.gif", 15)
	f.mem.SetCounter(soltron.PostCount{Date: "2025-06-01", Tweets: 15})
	before := testutil.ToFloat64(mediaFallbacks.WithLabelValues(StageReserveSlot, "skip"))

	res, err := f.publisher.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.MediaAttached || len(f.platform.published[0].mediaIDs) != 0 {
		t.Errorf("media attached past the cap: %+v", res)
	}
	if f.downloader.calls != 0 {
		t.Error("downloaded media past the cap")
	}
	if count, _ := f.mem.Counter(); count.Tweets != 16 {
		t.Errorf("counter = %d, want 16", count.Tweets)
	}
	if got := testutil.ToFloat64(mediaFallbacks.WithLabelValues(StageReserveSlot, "skip")) - before; got != 1 {
		t.Errorf("fallback delta = %v, want 1", got)
	}
}

func TestPublishMediaFailuresFallBack(t *testing.T) {
	tests := []struct {
		name      string
		downErr   error
		uploadErr error
		failed    string
	}{
		{name: "download", downErr: soltron.ErrMediaUpload, failed: StageDownloadMedia},
		{name: "upload", uploadErr: soltron.ErrMediaUpload, failed: StageUploadMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("https://media.giphy.com/a.gif", 15)
			f.downloader.err = tt.downErr
			f.platform.uploadErr = tt.uploadErr

			res, err := f.publisher.Publish(context.Background(), draft)
			if err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			if res.MediaAttached {
				t.Error("MediaAttached = true after failure")
			}
			call := f.platform.published[0]
			if call.text != "Soltron rises." || len(call.mediaIDs) != 0 {
				t.Errorf("publish call = %+v, want text only", call)
			}
			last := res.Stages[len(res.Stages)-1]
			if last.Stage != tt.failed || last.Outcome != Fail {
				t.Errorf("last stage = %+v, want %s fail", last, tt.failed)
			}
			if count, _ := f.mem.Counter(); count.Tweets != 1 {
				t.Errorf("counter = %d, want 1 (slot spent)", count.Tweets)
			}
		})
	}
}

func TestPublishErrorPropagates(t *testing.T) {
	f := newFixture("", 15)
	f.platform.publishErr = soltron.ErrPublish
	before := testutil.ToFloat64(publishErrors.WithLabelValues("hype"))

	_, err := f.publisher.Publish(context.Background(), draft)
	if !errors.Is(err, soltron.ErrPublish) {
		t.Errorf("Publish() error = %v, want ErrPublish", err)
	}
	if len(f.mem.Records()) != 0 {
		t.Error("metrics recorded for a failed publish")
	}
	if got := testutil.ToFloat64(publishErrors.WithLabelValues("hype")) - before; got != 1 {
		t.Errorf("publish_errors delta = %v, want 1", got)
	}
}

func TestPublishMetricFailureIsLogged(t *testing.T) {
	f := newFixture("", 15)
	f.mem.RecordErr = errors.New("firestore down")

	res, err := f.publisher.Publish(context.Background(), draft)
	if err != nil {
		t.Fatalf("Publish() error = %v, want nil", err)
	}
	if res.Handle.ID != "42" {
		t.Errorf("Handle = %+v", res.Handle)
	}
}

func TestPublishWithoutMetricsStore(t *testing.T) {
	plat := &fakePlatform{}
	p := New(nil, nil, nil, plat, nil, testLogger())
	if _, err := p.Publish(context.Background(), draft); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(plat.published) != 1 {
		t.Errorf("published = %d, want 1", len(plat.published))
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{Success: "success", Skip: "skip", Fail: "fail", Outcome(9): "unknown"}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", o, got, want)
		}
	}
}
