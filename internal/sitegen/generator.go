package sitegen

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/metrics"
)

const (
	DefaultArchiveName = "static_website.zip"
	defaultExtractCap  = 100 << 20
)

var unsafeDirChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Archive is the packaged static site.
type Archive struct {
	Name  string
	Data  []byte
	Files []string
}

type Params struct {
	Repository  *tenants.Repository
	Logger      *logger.Logger
	Metrics     *metrics.OperationMetrics
	WorkRoot    string
	OutputRoot  string
	ArchiveName string
	// MaxExtractBytes caps the unpacked size of a theme bundle.
	MaxExtractBytes int64
}

// Generator renders a tenant's storefront from a theme bundle.
type Generator struct {
	repo        *tenants.Repository
	logg        *logger.Logger
	metrics     *metrics.OperationMetrics
	workRoot    string
	outputRoot  string
	archiveName string
	extractCap  int64

	mu   sync.Mutex
	busy map[string]*tenantLock
}

type tenantLock struct {
	sync.Mutex
	refs int
}

func NewGenerator(p Params) (*Generator, error) {
	if p.Repository == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(p.WorkRoot) == "" || strings.TrimSpace(p.OutputRoot) == "" {
		return nil, fmt.Errorf("work and output roots required")
	}
	name := strings.TrimSpace(p.ArchiveName)
	if name == "" {
		name = DefaultArchiveName
	}
	limit := p.MaxExtractBytes
	if limit <= 0 {
		limit = defaultExtractCap
	}
	return &Generator{
		repo:        p.Repository,
		logg:        p.Logger,
		metrics:     p.Metrics,
		workRoot:    p.WorkRoot,
		outputRoot:  p.OutputRoot,
		archiveName: name,
		extractCap:  limit,
		busy:        map[string]*tenantLock{},
	}, nil
}

// Generate renders every page of the tenant's site with the bundle's
// templates and returns them zipped. Scratch directories never outlive the call.
func (g *Generator) Generate(ctx context.Context, tenantKey string, bundle ThemeBundle) (archive *Archive, err error) {
	start := time.Now()
	defer func() { g.metrics.ObserveResult(metrics.OpSiteGenerate, start, err) }()

	if strings.TrimSpace(tenantKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: user")
	}
	ctx = g.logg.WithTenant(ctx, tenantKey)

	doc, err := g.repo.Load(ctx, tenantKey)
	if err != nil {
		return nil, err
	}

	unlock := g.lockTenant(tenantKey)
	defer unlock()

	dirName := scratchDirName(tenantKey)
	workDir := filepath.Join(g.workRoot, dirName)
	outDir := filepath.Join(g.outputRoot, dirName)
	if err := resetDir(workDir); err != nil {
		return nil, err
	}
	if err := resetDir(outDir); err != nil {
		return nil, err
	}
	defer func() {
		if cleanupErr := multierr.Combine(os.RemoveAll(outDir), os.RemoveAll(workDir)); cleanupErr != nil {
			g.logg.Warn(g.logg.WithField(ctx, "error", cleanupErr.Error()), "failed to clean site generation scratch")
		}
	}()

	if err := unpack(bundle, workDir, g.extractCap); err != nil {
		return nil, err
	}
	templates, err := locateTemplates(workDir)
	if err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "theme bundle rejected")
		return nil, err
	}

	files, err := g.render(ctx, doc, templates, outDir)
	if err != nil {
		return nil, err
	}
	data, err := zipFiles(outDir, files)
	if err != nil {
		return nil, err
	}

	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"pages":    len(files),
		"products": len(doc.Products),
		"bytes":    len(data),
	}), "static site generated")
	return &Archive{Name: g.archiveName, Data: data, Files: files}, nil
}

// ProductPage is the context handed to the product template.
type ProductPage struct {
	tenants.Product
	Images   []string
	Price    decimal.Decimal
	Settings tenants.Settings
}

func (g *Generator) render(ctx context.Context, doc *tenants.Document, templates map[string]string, outDir string) ([]string, error) {
	var files []string
	renderTo := func(page, name string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := renderFile(templates[page], filepath.Join(outDir, name), data); err != nil {
			return err
		}
		files = append(files, name)
		return nil
	}

	if err := renderTo(PageIndex, "index.html", doc); err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(doc.Products))
	for _, p := range doc.Products {
		name, err := productFileName(p.ProductID)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(name)
		if _, dup := used[key]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product id %q is used by more than one product", p.ProductID))
		}
		used[key] = struct{}{}
		page := ProductPage{
			Product:  p,
			Images:   p.Images(),
			Price:    p.EffectivePrice(),
			Settings: doc.Settings,
		}
		if err := renderTo(PageProduct, name, page); err != nil {
			return nil, err
		}
	}
	for _, page := range []string{PageCheckout, PageOrderSuccess, PageOrderCancel} {
		if err := renderTo(page, page+".html", doc); err != nil {
			return nil, err
		}
	}
	return files, nil
}

var funcs = template.FuncMap{
	"money": money.FormatAmount,
}

func renderFile(templatePath, outPath string, data any) error {
	name := filepath.Base(templatePath)
	tmpl, err := template.New(name).Funcs(funcs).ParseFiles(templatePath)
	if err != nil {
		return renderError(name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return renderError(name, err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write rendered page")
	}
	return nil
}

func renderError(name string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeRender, err, fmt.Sprintf("render %s: %v", name, err)).
		WithDetails(map[string]any{"template": name})
}

func productFileName(productID string) (string, error) {
	id := strings.TrimSpace(productID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product id %q cannot be used as a file name", productID))
	}
	if tenants.IsReservedProductID(id) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product id %q is reserved for a storefront page", productID))
	}
	return id + ".html", nil
}

func zipFiles(dir string, files []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range files {
		if err := addToZip(zw, dir, name); err != nil {
			return nil, multierr.Append(err, zw.Close())
		}
	}
	if err := zw.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize site archive")
	}
	return buf.Bytes(), nil
}

func addToZip(zw *zip.Writer, dir, name string) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open rendered page")
	}
	defer f.Close()
	w, err := zw.Create(name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add page to archive")
	}
	if _, err := io.Copy(w, f); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add page to archive")
	}
	return nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear scratch directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create scratch directory")
	}
	return nil
}

// scratchDirName is a filesystem-safe, collision-free directory name for key.
func scratchDirName(key string) string {
	sum := sha256.Sum256([]byte(key))
	safe := unsafeDirChars.ReplaceAllString(strings.ToLower(key), "_")
	if len(safe) > 48 {
		safe = safe[:48]
	}
	return safe + "-" + hex.EncodeToString(sum[:6])
}

// lockTenant serializes generations for one tenant inside this process so
// two runs never share a scratch directory. The entry is dropped once the
// last holder or waiter releases it.
func (g *Generator) lockTenant(key string) func() {
	g.mu.Lock()
	l, ok := g.busy[key]
	if !ok {
		l = &tenantLock{}
		g.busy[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.busy, key)
		}
		g.mu.Unlock()
	}
}
