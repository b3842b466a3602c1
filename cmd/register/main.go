package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/studenthealthcard/registration/internal/formsubmit"
)

type options struct {
	fields  map[string]string
	origin  string
	timeout time.Duration
	verbose bool
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run submits the form once and prints the outcome. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return 2
	}

	doc := formsubmit.NewStaticDocument(opts.fields)
	handler, err := formsubmit.NewHandler(doc, opts.origin,
		formsubmit.WithLogger(newLogger(stderr, opts.verbose)),
		formsubmit.WithHTTPClient(&http.Client{Timeout: opts.timeout}),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	form := doc.Form(formsubmit.FormID)
	handler.Attach(form)
	form.Submit()
	handler.Wait()

	if navigations := doc.Navigations(); len(navigations) > 0 {
		last := navigations[len(navigations)-1]
		target, err := formsubmit.ResolveLocation(opts.origin, last)
		if err != nil {
			target = last
		}
		fmt.Fprintf(stdout, "redirect: %s\n", target)
		return 0
	}

	message := doc.TextContent(formsubmit.ResponseMessageID)
	fmt.Fprintln(stdout, message)
	if message == formsubmit.FallbackMessage {
		return 1
	}
	return 0
}

// parseOptions reads one flag per form field plus the connection settings.
// A zero -timeout leaves the request bounded only by the transport.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)

	values := make(map[string]*string, len(formsubmit.FieldIDs))
	for _, id := range formsubmit.FieldIDs {
		values[id] = fs.String(id, "", "value of the "+id+" field")
	}
	origin := fs.String("origin", envOrDefault("REGISTRATION_ORIGIN", "http://localhost:8080"), "origin of the registration page")
	timeout := fs.Duration("timeout", 0, "request timeout (0 for none)")
	verbose := fs.Bool("v", false, "also log settled submissions")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		fields:  make(map[string]string, len(values)),
		origin:  *origin,
		timeout: *timeout,
		verbose: *verbose,
	}
	for id, value := range values {
		opts.fields[id] = *value
	}
	return opts, nil
}

// newLogger always records submission failures; verbose adds debug detail.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(level).With().Timestamp().Logger()
}

// envOrDefault returns the trimmed variable, or fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
