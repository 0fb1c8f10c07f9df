// Package ops implements the semantic edits applied to Cargo manifests.
//
// Every operation takes the manifest source and returns the modified bytes
// together with diagnostics. Problems with the manifest content are reported
// as diagnostics; the returned error is reserved for failures that are not
// about the document. The source is returned unchanged whenever an error
// diagnostic is emitted.
package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eykd/shipcrate/internal/manifest"
)

// parseManifestFn is the parse function used by the operations. It may be
// replaced in tests to simulate parse failures.
var parseManifestFn = manifest.Parse

// SetPackageVersion sets package.version to version.
func SetPackageVersion(ctx context.Context, src []byte, version string) ([]byte, []manifest.Diagnostic, error) {
	return setField(ctx, src, []string{"package"}, "version", version)
}

// SetWorkspaceVersion sets workspace.package.version to version.
func SetWorkspaceVersion(ctx context.Context, src []byte, version string) ([]byte, []manifest.Diagnostic, error) {
	return setField(ctx, src, []string{"workspace", "package"}, "version", version)
}

// InheritsWorkspaceVersion reports whether the manifest declares
// `version.workspace = true` under [package].
func InheritsWorkspaceVersion(ctx context.Context, src []byte) (bool, []manifest.Diagnostic, error) {
	doc, diags, err := parseManifestFn(ctx, src)
	if err != nil || manifest.HasErrors(diags) {
		return false, diags, err
	}
	return doc.Lookup("package", "version", "workspace").IsTrue(), diags, nil
}

// setField assigns value to the string field under table, inserting the
// field when the table exists without it.
func setField(ctx context.Context, src []byte, table []string, field, value string) ([]byte, []manifest.Diagnostic, error) {
	doc, diags, err := parseManifestFn(ctx, src)
	if err != nil {
		return src, diags, err
	}
	if manifest.HasErrors(diags) {
		return src, diags, nil
	}

	key := append(append([]string(nil), table...), field)
	name := strings.Join(key, ".")

	v := doc.Lookup(key...)
	if v == nil {
		if doc.Defines(key...) {
			return src, append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityError,
				Code:     manifest.CodeFieldNotString,
				Message:  fmt.Sprintf("%s is not a plain string", name),
			}), nil
		}
		t := doc.Table(table...)
		if t == nil {
			return src, append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityError,
				Code:     manifest.CodeTableMissing,
				Message:  fmt.Sprintf("manifest has no [%s] table", strings.Join(table, ".")),
			}), nil
		}
		doc.InsertString(t, field, value)
		return manifest.Serialize(doc), diags, nil
	}

	if v.Kind != manifest.KindString {
		return src, append(diags, manifest.Diagnostic{
			Severity: manifest.SeverityError,
			Code:     manifest.CodeFieldNotString,
			Message:  fmt.Sprintf("%s is not a string: %s", name, v.Raw),
			Location: v.Position(),
		}), nil
	}
	if v.Str == value {
		return src, diags, nil
	}
	if err := doc.SetString(v, value); err != nil {
		if errors.Is(err, manifest.ErrMultiline) {
			return src, append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityError,
				Code:     manifest.CodeFieldNotString,
				Message:  fmt.Sprintf("%s spans several lines and cannot be rewritten", name),
				Location: v.Position(),
			}), nil
		}
		return src, diags, err
	}
	return manifest.Serialize(doc), diags, nil
}
