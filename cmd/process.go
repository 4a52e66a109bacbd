package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arxaplan/cutout/internal/background"
	"github.com/arxaplan/cutout/internal/editor"
	"github.com/arxaplan/cutout/internal/photo"
	"github.com/arxaplan/cutout/internal/presets"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/render"
	"github.com/spf13/cobra"
)

type processOptions struct {
	hd          bool
	color       string
	prompt      string
	preset      string
	bgEndpoint  string
	filters     render.Filters
	shadowX     float64
	shadowY     float64
	shadowBlur  float64
	shadowColor string
	feather     float64
	format      string
	quality     int
	width       int
	height      int
	out         string
}

func newProcessCmd() *cobra.Command {
	opts := processOptions{filters: render.DefaultFilters()}

	cmd := &cobra.Command{
		Use:   "process <image>",
		Short: "Remove the background of one image and export it",
		Example: `  # Transparent PNG
  cutout process portrait.jpg

  # HD upscale on a white background, exported as WebP
  cutout process portrait.jpg --hd --color "#ffffff" --format webp --quality 85

  # AI background from a preset through a running cutout server
  cutout process shoe.png --preset studio --bg-endpoint http://localhost:8888/api/generate-bg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.hd, "hd", false, "Upscale the cutout to the original resolution")
	f.StringVar(&opts.color, "color", "", "Solid background colour (#rrggbb)")
	f.StringVar(&opts.prompt, "prompt", "", "Generate an AI background from this description")
	f.StringVar(&opts.preset, "preset", "", "Generate an AI background from a preset (see: cutout presets)")
	f.StringVar(&opts.bgEndpoint, "bg-endpoint", "", "Generation endpoint to use instead of calling the provider directly")
	f.Float64Var(&opts.filters.Brightness, "brightness", 100, "Brightness percentage (0-200)")
	f.Float64Var(&opts.filters.Contrast, "contrast", 100, "Contrast percentage (0-200)")
	f.Float64Var(&opts.filters.Saturation, "saturation", 100, "Saturation percentage (0-200)")
	f.Float64Var(&opts.shadowX, "shadow-x", 0, "Shadow horizontal offset")
	f.Float64Var(&opts.shadowY, "shadow-y", 10, "Shadow vertical offset")
	f.Float64Var(&opts.shadowBlur, "shadow-blur", 20, "Shadow blur radius")
	f.StringVar(&opts.shadowColor, "shadow-color", "", "Shadow colour (#rrggbbaa); empty disables the shadow")
	f.Float64Var(&opts.feather, "feather", 0, "Edge feather radius (preview only)")
	f.StringVarP(&opts.format, "format", "f", "png", "Output format: png, webp or jpg")
	f.IntVarP(&opts.quality, "quality", "q", photo.DefaultQuality, "Quality for webp and jpg (10-100)")
	f.IntVar(&opts.width, "width", 0, "Output width (0 keeps the cutout size)")
	f.IntVar(&opts.height, "height", 0, "Output height (0 keeps the cutout size)")
	f.StringVarP(&opts.out, "out", "o", "", "Output file or directory (default: generated name in the current directory)")

	return cmd
}

func runProcess(cmd *cobra.Command, path string, opts processOptions) error {
	ctx := cmd.Context()

	if opts.prompt != "" && opts.preset != "" {
		return errors.New("use either --prompt or --preset, not both")
	}
	prompt := opts.prompt
	if opts.preset != "" {
		preset, ok := presets.Default().Find(opts.preset)
		if !ok {
			return fmt.Errorf("unknown preset: %s", opts.preset)
		}
		prompt = preset.Prompt
	}

	format, err := photo.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	sessionOpts := []editor.Option{}
	if prompt != "" {
		generator, err := newGenerator(opts.bgEndpoint)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, editor.WithGenerator(generator))
	}
	s := editor.New(removal.NewClient(), sessionOpts...)
	defer s.Close()

	slog.Info("Removing background", "file", path)
	if err := s.Upload(ctx, filepath.Base(path), data); err != nil {
		return fmt.Errorf("%s: %w", removal.Message(err, removal.FallbackMessage), err)
	}

	if opts.hd {
		slog.Info("Upscaling to original resolution")
		if err := s.Upscale(ctx); err != nil {
			return fmt.Errorf("HD upscale failed: %w", err)
		}
	}

	if prompt != "" {
		slog.Info("Generating AI background")
		if err := s.GenerateBackground(ctx, prompt); err != nil {
			return fmt.Errorf("AI background failed: %w", err)
		}
	}

	settings, err := opts.settings()
	if err != nil {
		return err
	}
	if err := s.Apply(settings); err != nil {
		return err
	}

	artifact, name, err := s.Export(editor.ExportOptions{
		Format:  format,
		Quality: opts.quality,
		Width:   opts.width,
		Height:  opts.height,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out := outputPath(opts.out, name)
	if err := os.WriteFile(out, artifact.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("Saved %s (%dx%d, %s)\n", out, artifact.Width, artifact.Height, artifact.MIMEType)
	return nil
}

func (o processOptions) settings() (editor.Settings, error) {
	filters := o.filters
	feather := o.feather
	u := editor.Settings{
		Filters: &filters,
		Feather: &feather,
	}

	mode := editor.ViewTransparent
	u.ViewMode = &mode
	if o.color != "" {
		c := o.color
		u.Color = &c
	}

	if o.shadowColor != "" {
		c, err := render.ParseHexColor(o.shadowColor)
		if err != nil {
			return u, err
		}
		u.Shadow = &render.Shadow{
			OffsetX: o.shadowX,
			OffsetY: o.shadowY,
			Blur:    o.shadowBlur,
			Color:   c,
		}
	}
	return u, nil
}

func newGenerator(endpoint string) (editor.BackgroundGenerator, error) {
	if endpoint != "" {
		return background.NewClient(endpoint), nil
	}
	svc, err := background.NewServiceFromEnv()
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// outputPath resolves --out: empty means name in the working directory, an
// existing directory means name inside it.
func outputPath(out, name string) string {
	if out == "" {
		return name
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}
