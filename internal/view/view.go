// Package view renders the portal's server-side HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages *template.Template

func init() {
	funcMap := template.FuncMap{
		"roleLabel": func(r rbac.Role) string {
			switch r {
			case rbac.RoleAdmin:
				return "Administrator"
			case rbac.RoleDivision:
				return "Division Officer"
			case rbac.RoleInstitution:
				return "Institution"
			case rbac.RoleSite:
				return "Site"
			default:
				return "Guest"
			}
		},
	}
	pages = template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}

// Page is the envelope every template receives.
type Page struct {
	Title     string
	Principal rbac.Principal
	Flashes   []session.Flash
	Data      any
}

// Render writes the named page. Render errors cannot be recovered into a
// redirect because the response is already streaming, so they surface as a
// bare 500.
func Render(w http.ResponseWriter, name string, page Page) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}
