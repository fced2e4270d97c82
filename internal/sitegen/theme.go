package sitegen

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

const (
	PageIndex        = "index"
	PageProduct      = "product"
	PageCheckout     = "checkout"
	PageOrderSuccess = "order-success"
	PageOrderCancel  = "order-cancel"
)

// RequiredPages lists the templates every theme bundle must provide.
var RequiredPages = []string{PageIndex, PageProduct, PageCheckout, PageOrderSuccess, PageOrderCancel}

// ThemeBundle is a zip archive of theme templates.
type ThemeBundle struct {
	Reader io.ReaderAt
	Size   int64
}

// unpack extracts bundle into dir, refusing entries that escape it and
// stopping once more than limit bytes have been written.
func unpack(bundle ThemeBundle, dir string, limit int64) error {
	if bundle.Reader == nil || bundle.Size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "theme bundle is empty")
	}
	zr, err := zip.NewReader(bundle.Reader, bundle.Size)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "theme bundle is not a valid zip archive")
	}

	var written int64
	for _, f := range zr.File {
		name := filepath.Clean(filepath.FromSlash(f.Name))
		if name == "." || filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("theme bundle entry %q escapes the bundle root", f.Name))
		}
		target := filepath.Join(dir, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create theme directory")
			}
			continue
		}
		n, err := extractFile(f, target, limit-written)
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create theme directory")
	}
	rc, err := f.Open()
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("read theme entry %q", f.Name))
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write theme file")
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, remaining+1))
	if err != nil {
		return n, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("read theme entry %q", f.Name))
	}
	if n > remaining {
		return n, pkgerrors.New(pkgerrors.CodeValidation, "theme bundle expands beyond the allowed size")
	}
	return n, nil
}

// locateTemplates maps each required page to its template file at the root
// of dir. A file matches a page when its name before the first dot equals it.
func locateTemplates(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read theme directory")
	}
	required := make(map[string]bool, len(RequiredPages))
	for _, p := range RequiredPages {
		required[p] = true
	}

	found := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page := strings.SplitN(e.Name(), ".", 2)[0]
		if !required[page] {
			continue
		}
		if prev, dup := found[page]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("theme bundle has more than one %s template: %s, %s", page, prev, e.Name())).
				WithDetails(map[string]any{"template": page})
		}
		found[page] = filepath.Join(dir, e.Name())
	}

	var missing []string
	for _, p := range RequiredPages {
		if _, ok := found[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeMissingTemplate,
			fmt.Sprintf("theme bundle is missing template %s", strings.Join(missing, ", "))).
			WithDetails(map[string]any{"template": missing[0], "missing": missing})
	}
	return found, nil
}
