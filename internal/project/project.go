// Package project provides job file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schem-tracer/internal/config"
)

// Ext is the job file extension.
const Ext = ".schemproj"

// CurrentVersion is the job file format written by Save.
const CurrentVersion = 1

// File represents a schematic analysis job (.schemproj).
// All paths are stored relative to the job file unless absolute.
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Inputs
	ModelPath   string  `json:"model"`
	PDFPath     string  `json:"pdf,omitempty"`
	Page        int     `json:"page,omitempty"`
	TextPath    string  `json:"text,omitempty"`
	RasterPath  string  `json:"raster,omitempty"`
	DPI         float64 `json:"dpi,omitempty"`
	RegionsPath string  `json:"regions,omitempty"`

	// Config overrides the defaults field by field.
	Config *config.DetectionConfig `json:"config,omitempty"`

	// Output
	OutputPath string `json:"output,omitempty"`
	Format     string `json:"format,omitempty"`
}

// New creates a new job for page 1 with default settings.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Page:     1,
		DPI:      300,
	}
}

// Load loads a job from a .schemproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// settings missing from the job keep their defaults
	cfg := config.Default()
	proj := File{Config: &cfg}
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", path, err)
	}
	if proj.Version > CurrentVersion {
		return nil, fmt.Errorf("job %s has version %d, newer than supported %d", path, proj.Version, CurrentVersion)
	}
	if proj.Page == 0 {
		proj.Page = 1
	}
	if proj.Config != nil {
		if err := proj.Config.Validate(); err != nil {
			return nil, fmt.Errorf("job %s: %w", path, err)
		}
	}
	return &proj, nil
}

// Save saves the job to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()
	if p.Version == 0 {
		p.Version = CurrentVersion
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DetectionConfig returns the job's config, or the defaults.
func (p *File) DetectionConfig() config.DetectionConfig {
	if p.Config == nil {
		return config.Default()
	}
	return *p.Config
}

// SetPath returns target relative to the job file's directory, falling back
// to target itself when no relative form exists.
func SetPath(projectPath, target string) string {
	if target == "" {
		return ""
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	base, err := filepath.Abs(filepath.Dir(projectPath))
	if err != nil {
		return target
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return target
	}
	return rel
}

// Resolve returns the absolute form of a path stored in the job.
func Resolve(projectPath, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(projectPath), p)
}

// GetModelPath returns the absolute path to the vector model.
func (p *File) GetModelPath(projectPath string) string {
	return Resolve(projectPath, p.ModelPath)
}

// GetPDFPath returns the absolute path to the schematic PDF.
func (p *File) GetPDFPath(projectPath string) string {
	return Resolve(projectPath, p.PDFPath)
}

// GetTextPath returns the absolute path to the text runs file.
func (p *File) GetTextPath(projectPath string) string {
	return Resolve(projectPath, p.TextPath)
}

// GetRasterPath returns the absolute path to the page raster.
func (p *File) GetRasterPath(projectPath string) string {
	return Resolve(projectPath, p.RasterPath)
}

// GetRegionsPath returns the absolute path to the component regions file.
func (p *File) GetRegionsPath(projectPath string) string {
	return Resolve(projectPath, p.RegionsPath)
}

// GetOutputPath returns the absolute path for the report.
func (p *File) GetOutputPath(projectPath string) string {
	if p.OutputPath == "" {
		// Default: project_name_netlist.<format>
		ext := p.Format
		if ext == "" {
			ext = "txt"
		}
		base := strings.TrimSuffix(projectPath, filepath.Ext(projectPath))
		return base + "_netlist." + ext
	}
	return Resolve(projectPath, p.OutputPath)
}
