package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"roomStylerAi/internal/app"
	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/config"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/media"
	"roomStylerAi/internal/session"
)

type editList []string

func (e *editList) String() string { return strings.Join(*e, "; ") }

func (e *editList) Set(v string) error {
	*e = append(*e, v)
	return nil
}

type options struct {
	image string
	style string
	edits []string
	out   string
}

func main() {
	var (
		imagePath = flag.String("image", "", "Path to a PNG, JPEG or WEBP room photo")
		style     = flag.String("style", "", "Design style; empty picks one at random")
		outDir    = flag.String("out", ".", "Directory for the generated images")
		envFile   = flag.String("env", ".env", "Optional dotenv file")
		edits     editList
	)
	flag.Var(&edits, "edit", "Refinement instruction (repeatable)")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "image is required (use -image)")
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, "roomstyler-cli")

	ctx := context.Background()
	styles, err := catalog.Load(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load styles: %v\n", err)
		os.Exit(1)
	}
	designer, err := app.NewDesigner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init designer: %v\n", err)
		os.Exit(1)
	}
	conversations, err := app.NewConversations(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init chat: %v\n", err)
		os.Exit(1)
	}

	ctrl := session.NewController("cli", session.Dependencies{
		Designer:      designer,
		Conversations: conversations,
		Catalog:       styles,
		Upload:        imagecodec.Options{MaxBytes: cfg.Session.MaxUploadBytes},
	})
	defer ctrl.Close()

	opts := options{image: *imagePath, style: *style, edits: edits, out: *outDir}
	if err := run(ctx, ctrl, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run drives one session through upload, style and every edit, writing each
// successful design to opts.out. A failed edit is reported and skipped.
func run(ctx context.Context, ctrl *session.Controller, opts options, stdout io.Writer) error {
	file, err := os.Open(opts.image)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	if _, err := ctrl.Upload(file, filepath.Base(opts.image)); err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}

	var snap session.Snapshot
	if strings.TrimSpace(opts.style) == "" {
		snap, err = ctrl.SurpriseMe(ctx)
	} else {
		snap, err = ctrl.SelectStyle(ctx, opts.style)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeDesign(opts.out, 0, snap.GeneratedImage, stdout); err != nil {
		return err
	}
	printed := printChat(stdout, snap.ChatHistory, 0)

	for i, edit := range opts.edits {
		snap, err = ctrl.Refine(ctx, edit)
		printed = printChat(stdout, snap.ChatHistory, printed)
		if err != nil {
			fmt.Fprintf(stdout, "edit %d failed: %s\n", i+1, session.UserMessage(err))
			continue
		}
		if err := writeDesign(opts.out, i+1, snap.GeneratedImage, stdout); err != nil {
			return err
		}
	}
	return nil
}

func writeDesign(dir string, n int, image imagecodec.DataURI, stdout io.Writer) error {
	data, mime, err := imagecodec.Decode(image)
	if err != nil {
		return fmt.Errorf("decode design: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("design-%d%s", n, media.Extension(mime)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write design: %w", err)
	}
	fmt.Fprintf(stdout, "saved %s\n", path)
	return nil
}

func printChat(w io.Writer, history []session.ChatMessage, from int) int {
	for _, msg := range history[from:] {
		fmt.Fprintf(w, "[%s] %s\n", msg.Role, msg.Text)
	}
	return len(history)
}
