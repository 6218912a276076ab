package http

import (
	"fmt"
	"html/template"

	appweb "centsible/web"
)

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"active": func(a, b string) string {
			if a == b {
				return "active"
			}
			return ""
		},
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}
