package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core/program"
)

type programApi struct {
	catalog *program.Catalog
}

type ProgramFilters struct {
	Categories []string `json:"categories"`
	Durations  []string `json:"durations"`
}

func registerProgramAPI(g *echo.Group, catalog *program.Catalog) {
	api := programApi{catalog: catalog}

	pg := g.Group("/programs")
	pg.GET("", api.query)
	pg.GET("/filters", api.filters)
	pg.GET("/:id", api.retrieve)
}

// Handlers

func (api *programApi) query(ctx echo.Context) error {
	var filter program.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to program.QueryFilter")
	}
	return ctx.JSON(http.StatusOK, api.catalog.Filter(filter))
}

func (api *programApi) filters(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ProgramFilters{
		Categories: api.catalog.Categories(),
		Durations:  api.catalog.Durations(),
	})
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.catalog.Get(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prog)
}
