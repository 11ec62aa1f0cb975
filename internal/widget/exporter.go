// Package widget derives the bounded, self-contained snapshot the
// home-screen widget reads. Each export regenerates the whole file: photos
// are downloaded, recompressed to fixed dimensions, and inlined as base64,
// so the widget process renders without touching the network. The previous
// file's display metadata (custom title/icon/color) survives re-exports.
package widget

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // legacy uploads may be PNG
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
)

// Downloader fetches one photo, absent on any failure.
type Downloader interface {
	DownloadImage(ctx context.Context, ref models.BlobReference) ([]byte, bool)
}

// ReloadSignaler asks the widget host to reload timelines for a widget
// kind. Fire-and-forget: no return value, no delivery guarantee.
type ReloadSignaler interface {
	RequestReload(kind string)
}

// LogSignaler is the in-core ReloadSignaler: it only records the request.
// The platform bridge that actually pokes the widget host lives with the
// app shell, not here.
type LogSignaler struct {
	Log logging.Logger
}

func (s LogSignaler) RequestReload(kind string) {
	s.Log.Info(context.Background(), "widget reload requested", "kind", kind)
}

// Options bounds an export.
type Options struct {
	MaxPerEntity int // photos taken from a single entity
	MaxTotal     int // photos across the whole export
	Width        int // target bounding box, pixels
	Height       int
	JPEGQuality  int
}

// Exporter writes the snapshot file for one logical widget instance. The
// file name is derived from the widget kind (and user id when the widget is
// per-user), so repeated exports always target the same file.
type Exporter struct {
	downloads Downloader
	signal    ReloadSignaler
	dir       string
	kind      string
	userID    string
	opts      Options
	log       logging.Logger
	now       func() time.Time
}

func NewExporter(downloads Downloader, signal ReloadSignaler, dir, kind, userID string, opts Options, log logging.Logger) *Exporter {
	return &Exporter{
		downloads: downloads,
		signal:    signal,
		dir:       dir,
		kind:      kind,
		userID:    userID,
		opts:      opts,
		log:       log.With("widget", kind),
		now:       time.Now,
	}
}

func (e *Exporter) fileName() string {
	name := e.kind
	if e.userID != "" {
		name += "-" + e.userID
	}
	return filepath.Join(e.dir, name+".json")
}

// Export regenerates the snapshot from entities surviving filter (nil
// means all), collecting at most MaxPerEntity photos per entity and
// MaxTotal overall; once the total cap is hit, remaining entities are not
// processed. The write is all-or-nothing: any failure leaves the previous
// file untouched. On success the widget host is signaled to reload.
func (e *Exporter) Export(ctx context.Context, entities []models.Event, filter func(models.Event) bool) error {
	snap := models.WidgetSnapshot{
		LastUpdated: e.now().UTC(),
		Images:      []models.WidgetImage{},
	}
	if prev, ok := e.readPrevious(); ok {
		snap.Title = prev.Title
		snap.Icon = prev.Icon
		snap.Color = prev.Color
	}

outer:
	for _, ev := range entities {
		if filter != nil && !filter(ev) {
			continue
		}
		taken := 0
		for _, ref := range ev.PhotoRefs {
			if taken >= e.opts.MaxPerEntity {
				break
			}
			if len(snap.Images) >= e.opts.MaxTotal {
				break outer
			}
			data, ok := e.downloads.DownloadImage(ctx, models.ParseBlobRef(ref))
			if !ok {
				continue
			}
			compressed, err := e.recompress(data)
			if err != nil {
				e.log.Warn(ctx, "skipping unreadable photo", "ref", ref, "error", err)
				continue
			}
			snap.Images = append(snap.Images, models.WidgetImage{
				EntityID:    ev.ID,
				Title:       ev.Title,
				Date:        ev.Date.Format("Jan 2, 2006"),
				ImageBase64: base64.StdEncoding.EncodeToString(compressed),
			})
			taken++
		}
	}

	if err := e.writeAtomic(snap); err != nil {
		return err
	}
	e.log.Info(ctx, "widget snapshot exported", "images", len(snap.Images))
	e.signal.RequestReload(e.kind)
	return nil
}

// SetDisplay updates the custom title/icon/color while keeping the current
// images, then signals a reload.
func (e *Exporter) SetDisplay(ctx context.Context, title, icon, color string) error {
	snap, _ := e.readPrevious()
	snap.Title = title
	snap.Icon = icon
	snap.Color = color
	snap.LastUpdated = e.now().UTC()
	if snap.Images == nil {
		snap.Images = []models.WidgetImage{}
	}
	if err := e.writeAtomic(snap); err != nil {
		return err
	}
	e.signal.RequestReload(e.kind)
	return nil
}

func (e *Exporter) readPrevious() (models.WidgetSnapshot, bool) {
	var snap models.WidgetSnapshot
	data, err := os.ReadFile(e.fileName())
	if err != nil {
		return snap, false
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.WidgetSnapshot{}, false
	}
	return snap, true
}

func (e *Exporter) writeAtomic(snap models.WidgetSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding widget snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, "."+e.kind+"-*")
	if err != nil {
		return fmt.Errorf("creating widget snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing widget snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing widget snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.fileName()); err != nil {
		return fmt.Errorf("replacing widget snapshot: %w", err)
	}
	return nil
}

// recompress decodes a photo and re-encodes it as JPEG scaled to fit the
// configured bounding box, preserving aspect ratio.
func (e *Exporter) recompress(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > e.opts.Width || h > e.opts.Height {
		scale := float64(e.opts.Width) / float64(w)
		if s := float64(e.opts.Height) / float64(h); s < scale {
			scale = s
		}
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: e.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
