package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"apiprobe/internal/config"
	"apiprobe/internal/debuglog"
	"apiprobe/internal/httpclient"
	"apiprobe/internal/jqfilter"
	"apiprobe/internal/model"
	"apiprobe/internal/openapi"
	"apiprobe/internal/tryop"
)

func CallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [document] METHOD PATH",
		Short: "Send one request for an operation and print the response",
		Long: heredoc.Doc(`
			Build the request for one operation from -p values, send it and print the
			response body. The document comes from the first argument, --spec or the
			config file. PATH is the path template as written in the document.
		`),
		Example: heredoc.Doc(`
			apiprobe call petstore.yaml GET /pets/{petId} -p petId=42
			apiprobe call -s petstore.yaml POST /pets -p name=rex --jq .id
		`),
		Args: cobra.RangeArgs(2, 3),
		RunE: runCall,
	}

	flags := cmd.Flags()
	flags.StringArrayP("param", "p", nil, "Parameter value as name=value; body fields are matched by property name")
	flags.String("raw", "", "Send this text as the request body instead of the body parameter")
	flags.String("accept", "", "Accept header (default: first produces entry)")
	flags.String("jq", "", "jq expression applied to the response body")
	flags.BoolP("include", "i", false, "Print the status line and response headers")
	flags.Bool("fail", false, "Exit with an error on HTTP error statuses")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	var document string
	if len(args) == 3 {
		document, args = args[0], args[1:]
	}
	cfg, err := config.Load(cmd, document)
	if err != nil {
		return err
	}
	logger, closer := debuglog.Open(cfg.Debug || debuglog.Enabled(), debuglog.Path())
	defer closer.Close()

	doc, err := openapi.Load(cmd.Context(), cfg.Spec)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if err := doc.SetBaseURL(cfg.BaseURL); err != nil {
		return err
	}

	op, err := findOperation(doc.Operations, args[0], args[1])
	if err != nil {
		return err
	}

	b := tryop.New(op, doc.Context, tryop.Options{
		Transport:      httpclient.NewClient(cfg.Timeout),
		AcceptEncoding: cfg.AcceptEncoding,
		AcceptLanguage: cfg.AcceptLanguage,
		UserAgent:      cfg.UserAgent,
		BodyFormat:     cfg.Format(),
		Logger:         logger,
	})

	flags := cmd.Flags()
	params, _ := flags.GetStringArray("param")
	for _, kv := range params {
		if err := setParam(b, kv); err != nil {
			return err
		}
	}
	if flags.Changed("raw") {
		b.Mode = tryop.InputRaw
		b.Raw, _ = flags.GetString("raw")
	}
	if accept, _ := flags.GetString("accept"); accept != "" {
		b.Accept = accept
	}

	rec := call(cmd.Context(), b)
	if rec.StatusCode == 0 && rec.Failed {
		return fmt.Errorf("%s %s: %s", rec.Request.Method, rec.Request.URL, rec.Error)
	}

	out := cmd.OutOrStdout()
	if include, _ := flags.GetBool("include"); include {
		writeHead(out, rec)
	}

	body := rec.Body
	if expr, _ := flags.GetString("jq"); expr != "" {
		if body, err = jqfilter.Apply(cmd.Context(), rec.Body, expr); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, body)

	if fail, _ := flags.GetBool("fail"); fail && rec.Failed {
		return fmt.Errorf("request failed: %s", rec.Status)
	}
	return nil
}

// call runs MakeCall and waits for it.
func call(ctx context.Context, b *tryop.Builder) tryop.ResponseRecord {
	done := make(chan tryop.ResponseRecord, 1)
	b.MakeCall(ctx, func(rec tryop.ResponseRecord) { done <- rec })
	return <-done
}

func findOperation(ops []model.Operation, method, path string) (model.Operation, error) {
	for _, op := range ops {
		if strings.EqualFold(op.Method, method) && op.Path == path {
			return op, nil
		}
	}
	return model.Operation{}, fmt.Errorf("no operation %s %s in document", strings.ToUpper(method), path)
}

// setParam applies name=value to the parameter called name, or failing that
// to the body field called name.
func setParam(b *tryop.Builder, kv string) error {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("parameter %q: want name=value", kv)
	}

	var body *tryop.Param
	for _, p := range b.Params {
		if p.In == model.ParamInBody && body == nil {
			body = p
		}
		if p.Name == name {
			return wrapParam(name, p.SetText(value))
		}
	}
	if body != nil && body.Shape == model.ShapeObject {
		if _, known := body.Properties()[name]; known {
			return wrapParam(name, body.SetField(name, value))
		}
	}
	return fmt.Errorf("parameter %q: %w", name, errUnknownParam)
}

var errUnknownParam = errors.New("not declared by the operation")

func wrapParam(name string, err error) error {
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	return nil
}

func writeHead(w io.Writer, rec tryop.ResponseRecord) {
	fmt.Fprintf(w, "%s %s\n", rec.Request.Method, rec.Request.URL)
	fmt.Fprintf(w, "%s (%s)\n", rec.Status, rec.Elapsed)
	keys := make([]string, 0, len(rec.Headers))
	for k := range rec.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, rec.Headers[k])
	}
	fmt.Fprintln(w)
}
