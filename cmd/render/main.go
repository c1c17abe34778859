// Command render lays out a document record offline and writes it as PDF (or page HTML), printing
// the page count and break offsets it was cut at.
//
//	render -in resume.json -out resume.pdf
//	render -sample -template modern -out sample.pdf
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/section"
	"phCompose/internal/store"
	"phCompose/internal/template"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	in         string
	out        string
	templateID string
	html       bool
	sample     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "-", "记录 JSON 文件（- 表示 stdin）")
	fs.StringVar(&o.out, "out", "", "输出文件（必填）")
	fs.StringVar(&o.templateID, "template", "", "覆盖文档中的模板 id")
	fs.BoolVar(&o.html, "html", false, "输出页面 HTML 而非 PDF")
	fs.BoolVar(&o.sample, "sample", false, "使用内置示例文档，忽略 -in")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if strings.TrimSpace(o.out) == "" {
		return o, errors.New("missing required flag: -out")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	var rec store.Record
	if opts.sample {
		rec.Document, rec.Sections = template.Sample()
	} else {
		src := stdin
		if opts.in != "-" {
			f, err := os.Open(opts.in)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			src = f
		}
		if rec, err = readRecord(src); err != nil {
			return err
		}
	}
	if opts.templateID != "" {
		rec.Document.TemplateID = opts.templateID
	}
	rec.Sections = section.Normalize(rec.Sections, rec.Document.SectionKeys())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	registry := template.Default(errcode.SlogReporter(logger))

	if opts.html {
		var buf bytes.Buffer
		if err := registry.Render(rec.Document, rec.Sections).HTML(&buf); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(stdout, "template: %s\n", registry.ResolveID(rec.Document.TemplateID))
		return nil
	}

	out, err := export.NewNative(registry).Export(ctx, export.Request{Document: rec.Document, State: rec.Sections})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(opts.out, out.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	report(stdout, out)
	return nil
}

// readRecord accepts a stored record ({"document":…,"sections":…}) or a bare document.
func readRecord(r io.Reader) (store.Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return store.Record{}, fmt.Errorf("read input: %w", err)
	}
	var rec store.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return store.Record{}, fmt.Errorf("decode input: %w", err)
	}
	if rec.Document != nil {
		return rec, nil
	}
	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return store.Record{}, fmt.Errorf("decode document: %w", err)
	}
	doc.Repair()
	return store.Record{Document: &doc}, nil
}

func report(w io.Writer, out *export.Output) {
	fmt.Fprintf(w, "template: %s\n", out.TemplateID)
	fmt.Fprintf(w, "pages: %d\n", out.Pages.PageCount)
	offsets := make([]string, len(out.Pages.PageBreakOffsets))
	for i, off := range out.Pages.PageBreakOffsets {
		offsets[i] = fmt.Sprint(off)
	}
	fmt.Fprintf(w, "breaks: [%s]\n", strings.Join(offsets, " "))
	for _, d := range out.Diagnostics {
		fmt.Fprintf(w, "warning %d: %s (%s)\n", d.Code, d.Message, d.Key)
	}
}
