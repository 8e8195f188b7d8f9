// Command gallery is a terminal front end for the gallery API.
//
//	gallery -server http://localhost:3000
//
// It lists images and, in admin mode, creates, edits and deletes them. Admin
// mode is a local switch only; the server does not check it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/sakif/visions/internal/client"
	"github.com/sakif/visions/internal/config"
	"github.com/sakif/visions/internal/gallery"
	"github.com/sakif/visions/internal/model"
)

const helpText = `commands:
  list                      fetch and show all images
  admin                     toggle browse/admin mode
  new                       open an empty form            (admin)
  edit <id>                 open the form for an image    (admin)
  set <field> <value>       set url, title or description
  show                      show the open form
  save                      submit the form
  cancel                    close the form
  delete <id>               delete an image               (admin)
  help                      show this text
  quit                      exit`

func main() {
	serverURL := flag.String("server", envOr("GALLERY_SERVER", "http://localhost:3000"), "base URL of the gallery server")
	logLevel := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	view := gallery.NewView(client.New(*serverURL, nil), logger)
	r := newREPL(view, os.Stdin, os.Stdout)
	r.run(context.Background())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type repl struct {
	view *gallery.View
	in   *bufio.Scanner
	out  io.Writer
}

func newREPL(view *gallery.View, in io.Reader, out io.Writer) *repl {
	return &repl{view: view, in: bufio.NewScanner(in), out: out}
}

// run mounts the view and reads commands until quit or end of input.
func (r *repl) run(ctx context.Context) {
	r.view.Mount(ctx)
	r.printList()

	for {
		fmt.Fprintf(r.out, "%s> ", r.view.State().Mode)
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return
		}
		if !r.exec(ctx, r.in.Text()) {
			return
		}
	}
}

// exec runs one command line and reports whether to keep going.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
	case "list", "ls":
		if r.view.Refresh(ctx) {
			r.printList()
		} else {
			fmt.Fprintln(r.out, "could not fetch images")
		}
	case "admin", "mode":
		fmt.Fprintf(r.out, "mode: %s\n", r.view.ToggleMode())
	case "new":
		r.report(r.view.OpenCreate())
	case "edit":
		id, ok := r.parseID(args)
		if !ok {
			return true
		}
		if r.report(r.view.OpenEdit(id)) {
			r.printForm()
		}
	case "set":
		if len(args) < 1 {
			fmt.Fprintln(r.out, "usage: set <field> <value>")
			return true
		}
		r.report(r.view.SetField(args[0], restAfter(line, 2)))
	case "show":
		r.printForm()
	case "save":
		if r.report(r.view.Submit(ctx)) {
			r.printList()
		}
	case "cancel":
		r.view.CloseForm()
	case "delete", "rm":
		id, ok := r.parseID(args)
		if !ok {
			return true
		}
		deleted, err := r.view.Delete(ctx, id, r.confirm)
		if r.report(err) && deleted {
			r.printList()
		}
	default:
		fmt.Fprintf(r.out, "unknown command %q, try help\n", cmd)
	}
	return true
}

// restAfter returns line with its first n words removed, inner spacing kept.
func restAfter(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

func (r *repl) parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: <command> <id>")
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		fmt.Fprintf(r.out, "invalid id %q\n", args[0])
		return 0, false
	}
	return id, true
}

// report prints err, if any, and reports whether the command succeeded.
func (r *repl) report(err error) bool {
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return false
	}
	return true
}

func (r *repl) confirm(img model.Image) bool {
	fmt.Fprintf(r.out, "Are you sure you want to delete %q (#%d)? [y/N] ", img.DisplayTitle(), img.ID)
	if !r.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(r.in.Text()))
	return answer == "y" || answer == "yes"
}

func (r *repl) printList() {
	s := r.view.State()
	if len(s.Records) == 0 {
		fmt.Fprintln(r.out, "No images yet.")
		return
	}
	for _, img := range s.Records {
		fmt.Fprintf(r.out, "#%-4d %s\n      %s\n", img.ID, img.DisplayTitle(), img.URL)
		if img.Description != "" {
			fmt.Fprintf(r.out, "      %s\n", img.Description)
		}
	}
}

func (r *repl) printForm() {
	s := r.view.State()
	if !s.FormOpen {
		fmt.Fprintln(r.out, "no form open")
		return
	}
	heading := "Add New Image"
	if s.Editing != nil {
		heading = fmt.Sprintf("Edit Image #%d", s.Editing.ID)
	}
	fmt.Fprintf(r.out, "%s\n  url:         %s\n  title:       %s\n  description: %s\n",
		heading, s.Form.URL, s.Form.Title, s.Form.Description)
}
