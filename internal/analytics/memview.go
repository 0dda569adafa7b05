package analytics

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Chart surface sizes used by MemoryView and the UI.
const (
	LineChartWidth  = 720
	LineChartHeight = 300
	BarChartWidth   = 480
	BarChartHeight  = 300
)

// MemoryView is a View backed by in-memory RGBA surfaces and a text map.
type MemoryView struct {
	mu       sync.Mutex
	texts    map[string]string
	surfaces map[string]*image.RGBA
	lastErr  error
}

// NewMemoryView allocates the three chart surfaces at their default sizes.
func NewMemoryView() *MemoryView {
	return &MemoryView{
		texts: make(map[string]string),
		surfaces: map[string]*image.RGBA{
			SurfaceTrust:    image.NewRGBA(image.Rect(0, 0, LineChartWidth, LineChartHeight)),
			SurfaceBeds:     image.NewRGBA(image.Rect(0, 0, LineChartWidth, LineChartHeight)),
			SurfaceOutcomes: image.NewRGBA(image.Rect(0, 0, BarChartWidth, BarChartHeight)),
		},
	}
}

func (m *MemoryView) SetText(slot, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[slot] = text
}

// Text returns the text last written to slot.
func (m *MemoryView) Text(slot string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts[slot]
}

func (m *MemoryView) Surface(id string) draw.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img, ok := m.surfaces[id]; ok {
		return img
	}
	return nil
}

// Image returns the surface for id, or nil.
func (m *MemoryView) Image(id string) *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surfaces[id]
}

func (m *MemoryView) ShowError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// Err returns the last error shown.
func (m *MemoryView) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// WritePNGs encodes every surface into dir as <prefix><id>.png and returns
// the written paths in name order.
func (m *MemoryView) WritePNGs(dir, prefix string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	m.mu.Lock()
	ids := make([]string, 0, len(m.surfaces))
	for id := range m.surfaces {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)

	var paths []string
	for _, id := range ids {
		path := filepath.Join(dir, prefix+id+".png")
		if err := writePNG(path, m.Image(id)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
