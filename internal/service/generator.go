package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"qrforge/internal/config"
	"qrforge/internal/model"
	"qrforge/internal/payload"
	"qrforge/internal/qrcode"
	"qrforge/internal/render"
)

// MaxImageDataBytes bounds a client-rendered image after base64 decoding.
const MaxImageDataBytes = 5 << 20

// GenerateRequest is one single-item generation.
type GenerateRequest struct {
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data" swaggertype:"object"`
	Size        int             `json:"size"`
	ECC         string          `json:"ecc"`
	Foreground  string          `json:"fg_color"`
	Background  string          `json:"bg_color"`
	Format      string          `json:"format"`
	Template    string          `json:"template,omitempty"`
	DotStyle    string          `json:"dot_style,omitempty"`
	CornerStyle string          `json:"corner_style,omitempty"`
	// ImageData is an optional base64 image already rendered by the client,
	// with or without a data-URI prefix. When set it is stored as-is.
	ImageData string `json:"image_data,omitempty"`
	// Logo is an optional base64 PNG or JPEG overlaid on the code center.
	Logo string `json:"logo,omitempty"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
	Referrer  string `json:"-"`
}

// GenerateResult is a persisted artifact plus timing.
type GenerateResult struct {
	Artifact       *model.Artifact
	ProcessingTime time.Duration
}

// Trigger launches a detached cleanup with some probability.
type Trigger interface {
	MaybeTrigger()
}

// Generator runs the single-item pipeline: decode, style, render, store.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

type generator struct {
	provider  qrcode.MatrixProvider
	artifacts ArtifactStore
	presets   PresetService
	trigger   Trigger
	qr        config.QRConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewGenerator constructs a Generator. trigger may be nil.
func NewGenerator(provider qrcode.MatrixProvider, artifacts ArtifactStore, presets PresetService, trigger Trigger, qr config.QRConfig, log logrus.FieldLogger) Generator {
	return &generator{
		provider:  provider,
		artifacts: artifacts,
		presets:   presets,
		trigger:   trigger,
		qr:        qr,
		log:       log.WithField("component", "generator"),
		now:       time.Now,
	}
}

func (g *generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	ctx, span := startSpan(ctx, "Generator.Generate", attribute.String("qr.type", req.Type))
	defer span.End()

	res, err := g.generate(ctx, req)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("qr.artifact_id", res.Artifact.ID),
		attribute.String("qr.format", res.Artifact.Format),
	)
	return res, nil
}

func (g *generator) generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := g.now()
	log := g.log.WithFields(logrus.Fields{"type": req.Type, "data_length": len(req.Data)})

	p, fields, err := payload.Decode(req.Type, req.Data)
	if err != nil {
		if errors.Is(err, payload.ErrEmptyPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	style, level, err := g.resolveStyle(ctx, req)
	if err != nil {
		return nil, err
	}

	var out *render.Output
	if req.ImageData != "" {
		out, err = imageDataOutput(req.ImageData, style)
		if err != nil {
			return nil, err
		}
		style.Format, _ = render.ParseFormat(out.Extension)
		style.Logo = nil
	} else {
		out, err = g.render(p.String(), style, level)
		if err != nil {
			log.WithFields(logrus.Fields{"event": "generate", "status": "error", "error_message": err.Error()}).Warn("rendering failed")
			return nil, err
		}
	}

	a := &model.Artifact{
		DataType:     string(p.Kind()),
		OriginalData: fields,
		Payload:      p.String(),
		Size:         style.Size,
		Foreground:   render.Hex(style.Foreground),
		Background:   render.Hex(style.Background),
		Format:       string(style.Format),
		ECC:          string(level),
		Template:     req.Template,
		DotStyle:     string(style.DotStyle),
		CornerStyle:  string(style.CornerStyle),
		HasLogo:      style.Logo != nil,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
	}
	saved, err := g.artifacts.Save(ctx, a, out)
	if err != nil {
		log.WithFields(logrus.Fields{"event": "generate", "status": "error", "error_message": err.Error()}).Error("artifact not stored")
		return nil, err
	}

	elapsed := g.now().Sub(start)
	generationDuration.Observe(elapsed.Seconds())
	g.artifacts.LogEvent(ctx, &model.AnalyticsEvent{
		ArtifactID:     saved.ID,
		EventType:      model.EventGenerate,
		DataType:       saved.DataType,
		Size:           saved.Size,
		Format:         saved.Format,
		ProcessingTime: elapsed,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		Referrer:       req.Referrer,
	})
	if g.trigger != nil {
		g.trigger.MaybeTrigger()
	}

	log.WithFields(logrus.Fields{
		"event":       "generate",
		"status":      "success",
		"artifact_id": saved.ID,
		"format":      saved.Format,
		"latency":     elapsed.String(),
	}).Info("artifact generated")
	return &GenerateResult{Artifact: saved, ProcessingTime: elapsed}, nil
}

func (g *generator) render(data string, style render.Style, level qrcode.Level) (*render.Output, error) {
	m, err := g.provider.Matrix(data, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	out, err := render.Render(m, style)
	if err != nil {
		if errors.Is(err, render.ErrInvalidStyle) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return out, nil
}

// resolveStyle layers request fields over the named preset over config
// defaults. Size is clamped into the configured range.
func (g *generator) resolveStyle(ctx context.Context, req GenerateRequest) (render.Style, qrcode.Level, error) {
	size := req.Size
	if size == 0 {
		size = g.qr.DefaultSize
	}
	size = min(max(size, g.qr.MinSize), g.qr.MaxSize)

	style := render.DefaultStyle(size)
	style.QuietZone = g.qr.QuietZone
	style.LogoSizePercent = g.qr.LogoSizePercent
	style.LogoOpacity = g.qr.LogoOpacity

	format, err := render.ParseFormat(firstNonEmpty(req.Format, g.qr.DefaultFormat))
	if err != nil {
		return style, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	style.Format = format

	level, err := qrcode.ParseLevel(firstNonEmpty(req.ECC, g.qr.DefaultECC))
	if err != nil {
		return style, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fg, bg := g.qr.DefaultFG, g.qr.DefaultBG
	var dot, corner string
	if req.Template != "" {
		preset, err := g.presets.ByName(ctx, req.Template)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return style, "", fmt.Errorf("%w: unknown template %q", ErrInvalidInput, req.Template)
			}
			return style, "", err
		}
		fg = firstNonEmpty(preset.Settings.Foreground, fg)
		bg = firstNonEmpty(preset.Settings.Background, bg)
		dot, corner = preset.Settings.DotStyle, preset.Settings.CornerStyle
	}

	if style.Foreground, err = render.ParseColor(firstNonEmpty(req.Foreground, fg)); err != nil {
		return style, "", fmt.Errorf("%w: fg_color: %v", ErrInvalidInput, err)
	}
	if style.Background, err = render.ParseColor(firstNonEmpty(req.Background, bg)); err != nil {
		return style, "", fmt.Errorf("%w: bg_color: %v", ErrInvalidInput, err)
	}
	if style.DotStyle, err = render.ParseDotStyle(firstNonEmpty(req.DotStyle, dot)); err != nil {
		return style, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if style.CornerStyle, err = render.ParseCornerStyle(firstNonEmpty(req.CornerStyle, corner)); err != nil {
		return style, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if req.Logo != "" {
		raw, err := decodeBase64(req.Logo, render.MaxLogoBytes)
		if err != nil {
			return style, "", fmt.Errorf("%w: logo: %v", ErrInvalidInput, err)
		}
		if style.Logo, err = render.DecodeLogo(raw); err != nil {
			return style, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return style, level, nil
}

// imageDataOutput wraps a client-rendered image. Raster data must decode
// as PNG or JPEG and svg data must contain an svg element; the stored
// format follows the content.
func imageDataOutput(s string, style render.Style) (*render.Output, error) {
	raw, err := decodeBase64(s, MaxImageDataBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: image_data: %v", ErrInvalidInput, err)
	}

	var format render.Format
	width := style.Size
	if bytes.Contains(raw[:min(len(raw), 512)], []byte("<svg")) {
		format = render.FormatSVG
	} else {
		cfg, name, err := image.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: image_data is not a png, jpeg or svg image", ErrInvalidInput)
		}
		if format, err = render.ParseFormat(name); err != nil {
			return nil, fmt.Errorf("%w: image_data: %v", ErrInvalidInput, err)
		}
		width = cfg.Width
	}
	return &render.Output{
		Bytes:       raw,
		ContentType: format.ContentType(),
		Extension:   format.Extension(),
		Width:       width,
	}, nil
}

func decodeBase64(s string, limit int) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data uri")
		}
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if base64.StdEncoding.DecodedLen(len(s)) > limit+3 {
		return nil, fmt.Errorf("exceeds %d bytes", limit)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("invalid base64")
	}
	if len(raw) == 0 {
		return nil, errors.New("empty")
	}
	if len(raw) > limit {
		return nil, fmt.Errorf("exceeds %d bytes", limit)
	}
	return raw, nil
}
