package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/backup"
	"github.com/trezcool/edutrack/core/user"
)

type backupApi struct {
	mgr      *backup.Manager
	validate *validator.Validate
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, mgr *backup.Manager, validate *validator.Validate) {
	api := backupApi{mgr: mgr, validate: validate}

	bg := g.Group("/backup", jwt, roleMiddleware(user.RoleAdmin))
	bg.GET("/stats", api.stats)
	bg.GET("/list", api.list)
	bg.POST("/create", api.create)
	bg.GET("/download/:id", api.download)
	bg.POST("/restore/:id", api.restore)
	bg.DELETE("/:id", api.destroy)
}

type (
	CreateBackupResponse struct {
		Success bool          `json:"success"`
		Backup  backup.Backup `json:"backup"`
	}

	RestoreBackupResponse struct {
		Success      bool   `json:"success"`
		Message      string `json:"message"`
		RestoredFrom string `json:"restoredFrom"`
	}

	DeleteBackupResponse struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
	}
)

func (api *backupApi) stats(ctx echo.Context) error {
	stats, err := api.mgr.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting backup stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *backupApi) list(ctx echo.Context) error {
	backups, err := api.mgr.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing backups")
	}
	return ctx.JSON(http.StatusOK, backups)
}

func (api *backupApi) create(ctx echo.Context) error {
	var data backup.NewBackup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBackup")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	data.Type = backup.TypeManual

	b, err := api.mgr.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating backup")
	}
	return ctx.JSON(http.StatusOK, CreateBackupResponse{Success: true, Backup: b})
}

func (api *backupApi) download(ctx echo.Context) error {
	path, b, err := api.mgr.Locate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.Attachment(path, b.Filename)
}

func (api *backupApi) restore(ctx echo.Context) error {
	b, err := api.mgr.Restore(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "restoring backup")
	}
	return ctx.JSON(http.StatusOK, RestoreBackupResponse{
		Success:      true,
		Message:      "Database restored successfully",
		RestoredFrom: b.Filename,
	})
}

func (api *backupApi) destroy(ctx echo.Context) error {
	b, err := api.mgr.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeleteBackupResponse{
		Success:  true,
		Message:  "Backup deleted successfully",
		Filename: b.Filename,
	})
}
