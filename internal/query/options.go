// Package query implements the listing collaborator: filtering, sorting and
// pagination over bonus collections. It carries no business rules.
package query

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	defaultPage = 1
	defaultSize = 10
	maxSize     = 100
)

// sortable whitelists the columns list requests may order by.
var sortable = map[string]bool{
	"title":      true,
	"amount":     true,
	"status":     true,
	"created_at": true,
}

// ListOptions carries parsed filter/sort/pagination parameters.
type ListOptions struct {
	Status      string
	RecipientID string
	CreatedByID string
	Sort        string
	Page        int
	Size        int
}

// Parse reads list parameters from the request query with sane defaults.
func Parse(c echo.Context) ListOptions {
	opts := ListOptions{
		Status:      c.QueryParam("status"),
		RecipientID: c.QueryParam("recipient"),
		CreatedByID: c.QueryParam("created_by"),
		Sort:        c.QueryParam("sort"),
		Page:        parseInt(c.QueryParam("page"), defaultPage),
		Size:        parseInt(c.QueryParam("size"), defaultSize),
	}
	if opts.Page <= 0 {
		opts.Page = defaultPage
	}
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.Size > maxSize {
		opts.Size = maxSize
	}
	return opts
}

// Scope returns a GORM scope applying the options to a bonus query.
func (o ListOptions) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.Status != "" {
			db = db.Where("status = ?", o.Status)
		}
		if o.RecipientID != "" {
			db = db.Where("recipient_id = ?", o.RecipientID)
		}
		if o.CreatedByID != "" {
			db = db.Where("created_by_id = ?", o.CreatedByID)
		}
		db = db.Order(o.orderClause())
		return db.Offset((o.Page - 1) * o.Size).Limit(o.Size)
	}
}

// orderClause builds the ORDER BY from a "column,dir" spec, restricted to the
// whitelist. Defaults to newest first.
func (o ListOptions) orderClause() string {
	if o.Sort == "" {
		return "created_at DESC"
	}
	parts := strings.SplitN(o.Sort, ",", 2)
	column := strings.TrimSpace(parts[0])
	if !sortable[column] {
		return "created_at DESC"
	}
	dir := "ASC"
	if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
		dir = "DESC"
	}
	return column + " " + dir
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
