package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OscarKing888/BirdStamp-sub000/internal/config"
	"github.com/OscarKing888/BirdStamp-sub000/internal/utils"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/client"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/detect"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/llamacpp"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/meta"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/ollama"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/processing"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/render"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/subject"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
)

func main() {
	log.SetFlags(0)

	args := os.Args[1:]
	command := "render"
	if len(args) > 0 {
		switch args[0] {
		case "render", "inspect", "templates", "init-config":
			command = args[0]
			args = args[1:]
		}
	}

	switch command {
	case "render":
		runRender(args)
	case "inspect":
		runInspect(args)
	case "templates":
		runTemplates(args)
	case "init-config":
		runInitConfig(args)
	}
}

// loadConfig reads the config file, falling back to defaults when no
// file exists at the default location. An explicit path must load.
func loadConfig(path string) *config.Config {
	if path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		return cfg
	}
	defaultPath := config.GetConfigPath()
	if utils.FileExists(defaultPath) {
		cfg, err := config.LoadFromFile(defaultPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		return cfg
	}
	return config.Default()
}

func buildDetector(cfg *config.Config) subject.BirdDetector {
	if cfg.Detector.Backend == "none" {
		return nil
	}

	detect.SetSharedFactory(func() (*detect.Detector, error) {
		var vision client.VisionClient
		var err error
		switch cfg.Detector.Backend {
		case "ollama":
			serverURL := cfg.Detector.URL
			if serverURL == "" {
				serverURL = "http://localhost:11434"
			}
			vision, err = ollama.NewClient(serverURL)
		case "llamacpp":
			vision, err = llamacpp.NewClient(cfg.Detector.URL)
		default:
			return nil, fmt.Errorf("unknown backend %q (use ollama, llamacpp or none)", cfg.Detector.Backend)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Detector.Backend, err)
		}
		detector := detect.New(vision, cfg.Detector.Model)
		detector.SetMinConfidence(cfg.Detector.MinConfidence)
		return detector, nil
	})
	detector, err := detect.Shared()
	if err != nil {
		log.Fatal(err)
	}
	return detector
}

func installMetaOptions(cfg *config.Config, birdArg string) {
	template.SetMetaOptions(meta.Options{
		BirdArg:      birdArg,
		BirdPriority: cfg.Metadata.BirdFrom,
		BirdRegex:    cfg.Metadata.BirdRegex,
		TimeFormat:   cfg.Metadata.TimeFormat,
	})
}

func photoInfo(cfg *config.Config, path string, raw map[string]any) template.PhotoInfo {
	if cfg.Metadata.LoadSidecars {
		return template.NewPhotoInfo(path, raw)
	}
	return template.PhotoInfo{Path: path, Raw: raw}
}

// outputValues exposes the resolved context to the output name template
// ({bird}, {date}, {camera}, {author} plus the built-in {stem}/{ext}).
func outputValues(info template.PhotoInfo) map[string]string {
	context := template.BuildContext(info)
	return map[string]string{
		"bird":   context["bird"],
		"date":   context["capture_date"],
		"camera": context["camera"],
		"author": context["author"],
	}
}

func runRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		cfgPath      = fs.String("config", "", "config file path (default ~/.config/birdstamp/config.json)")
		outDir       = fs.String("out", "", "output directory")
		recursive    = fs.Bool("recursive", false, "scan input directories recursively")
		extFilter    = fs.String("ext", "", "input extension filter, comma-separated (jpg,jpeg,png,webp)")
		templateName = fs.String("template", "", "template name from the repository, or a payload file path")
		ratio        = fs.String("ratio", "", `target aspect ratio ("3:2" or "1.5", 0 keeps the native frame)`)
		center       = fs.String("center", "", "crop anchor: image|focus|bird")
		autoBird     = fs.Bool("auto-bird", true, "expand the crop so the detected bird is never clipped")
		padding      = fs.Int("padding", -1, "inner padding kept around the bird box (px), applied to all edges")
		fill         = fs.String("fill", "", "canvas fill color for outward padding (#rrggbb)")
		maxLongEdge  = fs.Int("max-long-edge", -1, "downscale the result so its long edge fits (0 keeps full size)")
		format       = fs.String("format", "", "output format: jpg|jpeg|png|webp (empty inherits the input)")
		quality      = fs.Int("quality", 0, "JPEG/WebP quality (1-100)")
		bird         = fs.String("bird", "", "bird name override for the {bird} placeholder")
		birdFrom     = fs.String("bird-from", "", "bird name priority, comma list of arg,meta,filename")
		birdRegex    = fs.String("bird-regex", "", "regex extracting the bird name from the file stem")
		useExiftool  = fs.String("use-exiftool", "", "exiftool mode: auto|on|off")
		backend      = fs.String("backend", "", "vision backend: ollama|llamacpp|none")
		serverURL    = fs.String("url", "", "vision backend server URL")
		model        = fs.String("model", "", "vision model name")
		jobs         = fs.Int("jobs", 1, "parallel render workers")
		skipExisting = fs.Bool("skip-existing", false, "skip inputs whose output file already exists")
		debug        = fs.Bool("debug", false, "also write a debug overlay with focus/bird/crop boxes")
	)
	fs.Parse(args)

	input := fs.Arg(0)
	if input == "" {
		log.Fatalf("usage: %s render input.jpg|dir [-template name] [-ratio 3:2] [-center image|focus|bird] [-out outdir] [-backend ollama|llamacpp|none] [-jobs n]", filepath.Base(os.Args[0]))
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := loadConfig(*cfgPath)
	if set["backend"] {
		cfg.Detector.Backend = *backend
	}
	if set["url"] {
		cfg.Detector.URL = *serverURL
	}
	if set["model"] {
		cfg.Detector.Model = *model
	}
	if set["use-exiftool"] {
		cfg.Metadata.UseExiftool = *useExiftool
	}
	if set["bird-from"] {
		cfg.Metadata.BirdFrom = strings.Split(strings.ReplaceAll(*birdFrom, " ", ""), ",")
	}
	if set["bird-regex"] {
		cfg.Metadata.BirdRegex = *birdRegex
	}
	if set["out"] {
		cfg.Output.OutputDir = *outDir
	}
	if set["format"] {
		cfg.Output.DefaultFormat = *format
	}
	if set["quality"] {
		cfg.Output.Quality = *quality
	}
	if set["skip-existing"] {
		cfg.Output.SkipExisting = *skipExisting
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	templateDir := cfg.TemplateDir()
	if err := template.EnsureRepository(templateDir); err != nil {
		log.Fatalf("template repository: %v", err)
	}
	payload, err := loadTemplate(templateDir, *templateName, cfg.Templates.Default)
	if err != nil {
		log.Fatalf("template: %v", err)
	}

	settings := render.SettingsFromPayload(payload)
	if set["ratio"] {
		settings.Ratio = utils.ParseRatio(*ratio)
	}
	if set["center"] {
		settings.CenterMode = subject.NormalizeCenterMode(*center)
	}
	if set["auto-bird"] {
		settings.AutoCropByBird = *autoBird
	}
	if set["padding"] && *padding >= 0 {
		settings.PadTop, settings.PadBottom, settings.PadLeft, settings.PadRight = *padding, *padding, *padding, *padding
	} else if settings.PadTop == 0 && settings.PadBottom == 0 && settings.PadLeft == 0 && settings.PadRight == 0 {
		// Templates that never set a padding inherit the configured one.
		p := cfg.Render.CropPaddingPx
		settings.PadTop, settings.PadBottom, settings.PadLeft, settings.PadRight = p, p, p, p
	}
	if set["fill"] {
		settings.PadFill = *fill
	}
	if set["max-long-edge"] && *maxLongEdge >= 0 {
		settings.MaxLongEdge = *maxLongEdge
	}

	needsBird := settings.CenterMode != subject.CenterModeImage || settings.AutoCropByBird
	var detector subject.BirdDetector
	if needsBird {
		detector = buildDetector(cfg)
	}
	pipeline := render.New(settings, detector)
	installMetaOptions(cfg, *bird)

	exts := utils.ParseExtensionList(*extFilter)
	files, err := utils.DiscoverImages(input, exts, *recursive)
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Fatalf("no images found under %s", input)
	}
	rawByPath, err := meta.ExtractBatch(files, cfg.Metadata.UseExiftool)
	if err != nil {
		log.Fatal(err)
	}
	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Fatal(err)
	}

	workers := *jobs
	if workers < 1 {
		workers = 1
	}
	timeout := time.Duration(cfg.Detector.TimeoutS) * time.Second

	var rendered, skipped, failed int64
	queue := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				switch renderOne(pipeline, cfg, path, rawByPath[path], timeout, *debug) {
				case renderedOne:
					atomic.AddInt64(&rendered, 1)
				case skippedOne:
					atomic.AddInt64(&skipped, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}
	for _, path := range files {
		queue <- path
	}
	close(queue)
	wg.Wait()

	log.Printf("done: %d rendered, %d skipped, %d failed", rendered, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

type renderOutcome int

const (
	renderedOne renderOutcome = iota
	skippedOne
	failedOne
)

func renderOne(pipeline *render.Pipeline, cfg *config.Config, path string, raw map[string]any, timeout time.Duration, debug bool) renderOutcome {
	info := photoInfo(cfg, path, raw)
	outPath := utils.OutputPath(path, cfg.Output.OutputDir, cfg.Output.NameTemplate, cfg.Output.DefaultFormat, outputValues(info))
	if cfg.Output.SkipExisting && utils.FileExists(outPath) {
		log.Printf("skip %s (exists)", outPath)
		return skippedOne
	}

	img, err := processing.LoadImage(path)
	if err != nil {
		log.Printf("load %s failed: %v", path, err)
		return failedOne
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, plan, err := pipeline.BuildImage(ctx, img, info)
	if err != nil {
		log.Printf("render %s failed: %v", path, err)
		return failedOne
	}
	if err := processing.SaveImage(out, outPath, cfg.Output.Quality); err != nil {
		log.Printf("save %s failed: %v", outPath, err)
		return failedOne
	}
	log.Printf("wrote %s", outPath)

	if debug {
		log.Printf("%s: anchor=%.3f,%.3f crop=%v pads=%d,%d,%d,%d",
			filepath.Base(path), plan.Anchor.X, plan.Anchor.Y, plan.CropBox != nil,
			plan.PadTop, plan.PadBottom, plan.PadLeft, plan.PadRight)
		overlayImg := pipeline.DebugOverlay(ctx, img, info.Raw)
		debugPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "__debug.png"
		if err := processing.SaveImage(overlayImg, debugPath, cfg.Output.Quality); err != nil {
			log.Printf("debug save %s failed: %v", debugPath, err)
		} else {
			log.Printf("wrote %s", debugPath)
		}
	}
	return renderedOne
}

// loadTemplate resolves a template by repository name first, then as a
// direct payload file path. An empty name falls back to the configured
// default, and failing that the built-in template.
func loadTemplate(dir, name, fallback string) (template.Payload, error) {
	if name == "" {
		name = fallback
	}
	if name != "" && (strings.ContainsRune(name, os.PathSeparator) || utils.FileExists(name)) {
		return template.LoadPayload(name)
	}
	return template.Load(dir, name)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var (
		cfgPath     = fs.String("config", "", "config file path")
		useExiftool = fs.String("use-exiftool", "", "exiftool mode: auto|on|off")
		backend     = fs.String("backend", "", "vision backend: ollama|llamacpp|none")
		serverURL   = fs.String("url", "", "vision backend server URL")
		model       = fs.String("model", "", "vision model name")
		bird        = fs.String("bird", "", "bird name override")
		runDetect   = fs.Bool("detect", false, "also run bird detection on the photo")
	)
	fs.Parse(args)

	input := fs.Arg(0)
	if input == "" {
		log.Fatalf("usage: %s inspect input.jpg [-detect] [-use-exiftool auto|on|off]", filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(*cfgPath)
	if *useExiftool != "" {
		cfg.Metadata.UseExiftool = *useExiftool
	}
	if *backend != "" {
		cfg.Detector.Backend = *backend
	}
	if *serverURL != "" {
		cfg.Detector.URL = *serverURL
	}
	if *model != "" {
		cfg.Detector.Model = *model
	}
	installMetaOptions(cfg, *bird)

	rawByPath, err := meta.ExtractBatch([]string{input}, cfg.Metadata.UseExiftool)
	if err != nil {
		log.Fatal(err)
	}
	info := photoInfo(cfg, input, rawByPath[input])

	report := map[string]any{
		"path":    info.Path,
		"sidecar": info.SidecarPath,
		"context": template.BuildContext(info),
	}

	if *runDetect {
		img, err := processing.LoadImage(input)
		if err != nil {
			log.Fatal(err)
		}
		detector := buildDetector(cfg)
		if detector == nil {
			log.Fatalf("backend %q cannot detect", cfg.Detector.Backend)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Detector.TimeoutS)*time.Second)
		defer cancel()
		box := detector.PrimaryBirdBox(ctx, img)
		detection := map[string]any{"box": box}
		if d, ok := detector.(*detect.Detector); ok {
			detection["status"] = d.Status()
		}
		report["detection"] = detection
	}

	js, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(js))
}

func runTemplates(args []string) {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	var (
		cfgPath = fs.String("config", "", "config file path")
		dir     = fs.String("dir", "", "template repository directory")
	)
	fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	templateDir := *dir
	if templateDir == "" {
		templateDir = cfg.TemplateDir()
	}
	if err := template.EnsureRepository(templateDir); err != nil {
		log.Fatalf("template repository: %v", err)
	}

	if name := fs.Arg(0); name != "" {
		payload, err := template.Load(templateDir, name)
		if err != nil {
			log.Fatal(err)
		}
		js, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(js))
		return
	}

	for _, name := range template.ListNames(templateDir) {
		fmt.Println(name)
	}
}

func runInitConfig(args []string) {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	var (
		path  = fs.String("path", "", "config file path (default ~/.config/birdstamp/config.json)")
		force = fs.Bool("force", false, "overwrite an existing config file")
	)
	fs.Parse(args)

	target := *path
	if target == "" {
		target = config.GetConfigPath()
	}
	if utils.FileExists(target) && !*force {
		log.Fatalf("%s already exists (use -force to overwrite)", target)
	}

	cfg := config.Default()
	if err := cfg.SaveToFile(target); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", target)

	templateDir := cfg.TemplateDir()
	if err := template.EnsureRepository(templateDir); err != nil {
		log.Fatalf("template repository: %v", err)
	}
	log.Printf("template repository at %s", templateDir)
}
