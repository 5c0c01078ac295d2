package tryop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/model"
)

type InputMode int

const (
	InputForm InputMode = iota
	InputRaw
)

type BodyFormat string

const (
	FormatNone       BodyFormat = ""
	FormatFormData   BodyFormat = "form-data"
	FormatJSON       BodyFormat = "json"
	FormatURLEncoded BodyFormat = "x-www-form-urlencoded"
)

// BodyFormats is the cycle order used by the UI.
var BodyFormats = []BodyFormat{FormatJSON, FormatURLEncoded, FormatFormData}

func ParseBodyFormat(s string) (BodyFormat, error) {
	switch f := BodyFormat(strings.TrimSpace(s)); f {
	case FormatFormData, FormatJSON, FormatURLEncoded, FormatNone:
		return f, nil
	default:
		return FormatNone, fmt.Errorf("unknown body format %q", s)
	}
}

const (
	DefaultAcceptEncoding = "gzip, deflate"
	DefaultAcceptLanguage = "en-US,en;q=0.8"
	DefaultUserAgent      = "apiprobe"
)

// cascadingDefaults apply when neither the operation nor the document
// declares a property.
var cascadingDefaults = map[string][]string{
	"consumes": {"*/*"},
	"schemes":  {"http"},
}

var errMissingPathParam = errors.New("missing path parameter")

var pathToken = regexp.MustCompile(`\{([^}]+)\}`)

type Options struct {
	Transport      httpclient.Transport
	AcceptEncoding string
	AcceptLanguage string
	UserAgent      string
	BodyFormat     BodyFormat
	Logger         *log.Logger
}

// Builder turns one operation plus the user's parameter values into a
// request. Scheme, Accept, Format, Mode and Raw are form state owned by the
// caller's goroutine; the call state behind MakeCall is safe to read from any
// goroutine.
type Builder struct {
	op     model.Operation
	spec   model.SpecContext
	Params []*Param

	Scheme string
	Accept string
	Format BodyFormat
	Mode   InputMode
	Raw    string

	transport      httpclient.Transport
	acceptEncoding string
	acceptLanguage string
	userAgent      string
	boundary       string
	logger         *log.Logger

	mu         sync.Mutex
	gen        uint64
	cancel     context.CancelFunc
	inProgress bool
	last       *ResponseRecord
}

func New(op model.Operation, spec model.SpecContext, opts Options) *Builder {
	b := &Builder{
		op:             op,
		spec:           spec,
		Format:         opts.BodyFormat,
		transport:      opts.Transport,
		acceptEncoding: firstNonEmpty(opts.AcceptEncoding, DefaultAcceptEncoding),
		acceptLanguage: firstNonEmpty(opts.AcceptLanguage, DefaultAcceptLanguage),
		userAgent:      firstNonEmpty(opts.UserAgent, DefaultUserAgent),
		boundary:       multipart.NewWriter(io.Discard).Boundary(),
		logger:         opts.Logger,
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard, "", 0)
	}
	if b.transport == nil {
		b.transport = httpclient.NewClient(0)
	}
	for _, p := range op.Parameters {
		b.Params = append(b.Params, newParam(p))
	}
	if schemes, ok := b.Resolve("schemes"); ok && len(schemes) > 0 {
		b.Scheme = schemes[0]
	}
	b.Accept = "*/*"
	if produces, ok := b.Resolve("produces"); ok && len(produces) > 0 {
		b.Accept = produces[0]
	}
	return b
}

func (b *Builder) Operation() model.Operation { return b.op }

func (b *Builder) Spec() model.SpecContext { return b.spec }

// Param returns the parameter with the given name and location.
func (b *Builder) Param(name string, in model.ParamLocation) *Param {
	for _, p := range b.Params {
		if p.Name == name && p.In == in {
			return p
		}
	}
	return nil
}

// ParamsIn returns the parameters at one location, in declaration order.
func (b *Builder) ParamsIn(in model.ParamLocation) []*Param {
	var out []*Param
	for _, p := range b.Params {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

// Resolve looks a cascading property up on the operation, then on the
// document, then in the built-in defaults.
func (b *Builder) Resolve(name string) ([]string, bool) {
	var onOp, onSpec []string
	switch name {
	case "consumes":
		onOp, onSpec = b.op.Consumes, b.spec.Consumes
	case "produces":
		onOp, onSpec = b.op.Produces, b.spec.Produces
	case "schemes":
		onOp, onSpec = b.op.Schemes, b.spec.Schemes
	}
	if onOp != nil {
		return onOp, true
	}
	if onSpec != nil {
		return onSpec, true
	}
	if def, ok := cascadingDefaults[name]; ok {
		return append([]string(nil), def...), true
	}
	return nil, false
}

// GenerateURL assembles scheme://host basePath path ?query. A path template
// that cannot be filled resolves to an empty path rather than an error.
func (b *Builder) GenerateURL() string {
	path, err := expandPath(b.op.Path, b.pathValues())
	if err != nil {
		b.logger.Printf("url: %s %s: %v", b.op.Method, b.op.Path, err)
		path = ""
	}

	var query []pair
	for _, p := range b.ParamsIn(model.ParamInQuery) {
		if present(p.Value) && !p.isDefault(p.Value) {
			query = append(query, pair{p.Name, p.Value})
		}
	}

	u := b.Scheme + "://" + b.host() + b.spec.BasePath + path
	if qs := encodeForm(query); qs != "" {
		u += "?" + qs
	}
	return u
}

func (b *Builder) pathValues() map[string]string {
	vals := map[string]string{}
	for _, p := range b.ParamsIn(model.ParamInPath) {
		switch {
		case present(p.Value):
			vals[p.Name] = p.Text()
		case p.HasDefault():
			vals[p.Name] = scalarString(p.Default)
		}
	}
	return vals
}

func expandPath(tpl string, vals map[string]string) (string, error) {
	var missing []string
	out := pathToken.ReplaceAllStringFunc(tpl, func(tok string) string {
		name := tok[1 : len(tok)-1]
		v, ok := vals[name]
		if !ok {
			missing = append(missing, name)
			return tok
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", errMissingPathParam, strings.Join(missing, ", "))
	}
	return out, nil
}

func (b *Builder) HasBodyParam() bool {
	return b.bodyParam() != nil
}

// bodyParam returns the first body parameter; later ones are ignored.
func (b *Builder) bodyParam() *Param {
	for _, p := range b.Params {
		if p.In == model.ParamInBody {
			return p
		}
	}
	return nil
}

// RequestBody encodes the body parameter in the selected format. Raw mode
// returns the raw text untouched.
func (b *Builder) RequestBody() string {
	if b.Mode == InputRaw {
		return b.Raw
	}

	bp := b.bodyParam()
	if bp == nil || bp.Value == nil {
		return ""
	}

	switch b.Format {
	case FormatFormData:
		return encodeMultipart(b.boundary, bp.Value)
	case FormatJSON:
		return prettyJSON(bp.Value)
	case FormatURLEncoded:
		if obj, ok := bp.Value.(map[string]any); ok {
			var pairs []pair
			for _, k := range sortedKeys(obj) {
				pairs = append(pairs, pair{k, obj[k]})
			}
			return encodeForm(pairs)
		}
		return encodeForm([]pair{{bp.Name, bp.Value}})
	default:
		return ""
	}
}

// ContentType is the media type matching RequestBody.
func (b *Builder) ContentType() string {
	if b.Mode == InputRaw {
		if consumes, ok := b.Resolve("consumes"); ok && len(consumes) > 0 && consumes[0] != "*/*" {
			return consumes[0]
		}
		return ""
	}
	switch b.Format {
	case FormatFormData:
		return "multipart/form-data; boundary=" + b.boundary
	case FormatJSON:
		return "application/json"
	case FormatURLEncoded:
		return "application/x-www-form-urlencoded"
	default:
		return ""
	}
}

// Headers returns header parameters merged with the fixed browser-style
// header set; the fixed set wins on name clashes.
func (b *Builder) Headers() map[string]string {
	h := map[string]string{}
	for _, p := range b.ParamsIn(model.ParamInHeader) {
		h[p.Name] = p.Text()
	}

	origin, pathname := b.location()
	h["Host"] = b.host()
	h["Accept"] = b.Accept
	h["Accept-Encoding"] = b.acceptEncoding
	h["Accept-Language"] = b.acceptLanguage
	h["Cache-Control"] = "no-cache"
	h["Connection"] = "keep-alive"
	h["Origin"] = origin
	h["Referer"] = origin + pathname
	h["User-Agent"] = b.userAgent
	return h
}

func (b *Builder) host() string {
	if b.spec.Host != "" {
		return b.spec.Host
	}
	u, err := url.Parse(b.locationURL())
	if err != nil || u.Host == "" {
		return "localhost"
	}
	return u.Host
}

func (b *Builder) locationURL() string {
	return firstNonEmpty(b.spec.Location, "http://localhost")
}

// location splits the document location into origin and path.
func (b *Builder) location() (origin, pathname string) {
	u, err := url.Parse(b.locationURL())
	if err != nil || u.Host == "" {
		return "http://localhost", "/"
	}
	pathname = u.Path
	if pathname == "" {
		pathname = "/"
	}
	return u.Scheme + "://" + u.Host, pathname
}

// ParseHeaders reads a "Key: Value" block. Lines without a colon or with an
// empty key are skipped.
func ParseHeaders(raw string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
