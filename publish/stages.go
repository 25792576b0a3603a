package publish

import (
	"context"
	"log/slog"

	"soltron-bot/pkg/soltron"
)

// Outcome is the result of one enrichment stage.
type Outcome int

const (
	Success Outcome = iota
	Skip            // Stage declined; not an error
	Fail            // Stage errored; already logged
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Stage names, in the order they run.
const (
	StageResolveMedia  = "resolve_media"
	StageReserveSlot   = "reserve_slot"
	StageDownloadMedia = "download_media"
	StageUploadMedia   = "upload_media"
)

const gifMIME = "image/gif"

// StageResult records how one stage ended.
type StageResult struct {
	Stage   string
	Outcome Outcome
}

// enrichment is the state threaded through the stages.
type enrichment struct {
	query    string
	mediaURL string
	data     []byte
	mediaID  string
	stages   []StageResult
}

func (e *enrichment) ok() bool {
	return e.mediaID != ""
}

type stage struct {
	name string
	run  func(ctx context.Context, e *enrichment) Outcome
}

func (p *Publisher) stages() []stage {
	return []stage{
		{StageResolveMedia, p.resolveMedia},
		{StageReserveSlot, p.reserveSlot},
		{StageDownloadMedia, p.downloadMedia},
		{StageUploadMedia, p.uploadMedia},
	}
}

// enrich runs the stages in order and stops at the first outcome other than Success.
func (p *Publisher) enrich(ctx context.Context, draft soltron.Draft) *enrichment {
	e := &enrichment{query: draft.MediaQuery}
	for _, st := range p.stages() {
		outcome := st.run(ctx, e)
		e.stages = append(e.stages, StageResult{Stage: st.name, Outcome: outcome})
		if outcome == Success {
			continue
		}
		e.mediaID = ""
		mediaFallbacks.WithLabelValues(st.name, outcome.String()).Inc()
		level := slog.LevelInfo
		if outcome == Fail {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "Falling back to text-only post",
			"strategy", draft.Strategy,
			"stage", st.name,
			"outcome", outcome.String())
		break
	}
	return e
}

func (p *Publisher) resolveMedia(ctx context.Context, e *enrichment) Outcome {
	if e.query == "" || p.resolver == nil {
		return Skip
	}
	e.mediaURL = p.resolver.Resolve(ctx, e.query)
	if e.mediaURL == "" {
		return Skip
	}
	return Success
}

func (p *Publisher) reserveSlot(ctx context.Context, _ *enrichment) Outcome {
	if p.reserver != nil && !p.reserver.TryReserve(ctx) {
		p.logger.Info("Daily media cap reached", "stage", StageReserveSlot)
		return Skip
	}
	return Success
}

func (p *Publisher) downloadMedia(ctx context.Context, e *enrichment) Outcome {
	data, err := p.downloader.Download(ctx, e.mediaURL)
	if err != nil {
		p.logger.Error("GIF upload failed", "stage", StageDownloadMedia, "url", e.mediaURL, "error", err)
		return Fail
	}
	e.data = data
	return Success
}

func (p *Publisher) uploadMedia(ctx context.Context, e *enrichment) Outcome {
	id, err := p.platform.UploadMedia(ctx, e.data, gifMIME)
	if err != nil {
		p.logger.Error("GIF upload failed", "stage", StageUploadMedia, "platform", p.platform.Name(), "error", err)
		return Fail
	}
	e.mediaID = id
	return Success
}
