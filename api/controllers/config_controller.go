package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/api/models"
	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// MaxRestoreBytes caps a restore upload including multipart framing.
const MaxRestoreBytes = 64 * 1024

// RestoreFieldName is the multipart field carrying the document.
const RestoreFieldName = "restoreFile"

type ConfigController struct {
	store   *tool.ConfigStore
	flashes *models.FlashStore
	hub     types.NotifyHub
}

func NewConfigController(store *tool.ConfigStore, flashes *models.FlashStore, hub types.NotifyHub) *ConfigController {
	return &ConfigController{
		store:   store,
		flashes: flashes,
		hub:     hub,
	}
}

func redirectHome(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (ctrl *ConfigController) broadcast(kind, title, message string) {
	if ctrl.hub == nil {
		return
	}
	cfg := ctrl.store.Snapshot()
	state, _ := ctrl.store.State()
	ctrl.hub.Broadcast(&types.Notification{
		Type:    kind,
		Title:   title,
		Message: message,
		Data: map[string]any{
			"stationName": cfg.StationName,
			"loadState":   state.String(),
		},
	})
}

// HandleSave applies the submitted form, saves unconditionally and redirects.
// POST /save
func (ctrl *ConfigController) HandleSave(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		tool.DefaultLogger.Errorf("[Save] Failed to parse form: %v", err)
		ctrl.flashes.Push(c, types.FlashDanger, "Invalid form submission.")
		redirectHome(c)
		return
	}

	var problems []string
	err := ctrl.store.Update(func(cfg *types.StationConfig) {
		problems = models.ApplyForm(c, cfg)
	})

	switch {
	case err != nil:
		tool.DefaultLogger.Errorf("[Save] Failed to save config: %v", err)
		ctrl.flashes.Push(c, types.FlashDanger, "Settings applied but could not be saved to flash: "+err.Error())
	case len(problems) > 0:
		tool.DefaultLogger.Warnf("[Save] Saved with %d rejected field(s): %s", len(problems), strings.Join(problems, "; "))
		ctrl.flashes.Push(c, types.FlashWarning, "Saved. Some values were rejected and kept: "+strings.Join(problems, "; "))
		ctrl.broadcast(types.NotifyTypeConfigSaved, "Configuration saved", "Saved with rejected fields")
	default:
		tool.DefaultLogger.Infof("[Save] Configuration saved")
		ctrl.flashes.Push(c, types.FlashSuccess, "Configuration saved.")
		ctrl.broadcast(types.NotifyTypeConfigSaved, "Configuration saved", "")
	}
	redirectHome(c)
}

// streamDocument writes the persisted document; 404 when it does not exist.
func (ctrl *ConfigController) streamDocument(c *gin.Context, attachment bool) {
	doc, err := ctrl.store.OpenDocument()
	if err != nil {
		if errors.Is(err, tool.ErrDocumentAbsent) {
			c.String(http.StatusNotFound, "Config file not found")
			return
		}
		tool.DefaultLogger.Errorf("[Download] Failed to open config file: %v", err)
		c.String(http.StatusInternalServerError, "Config file cannot be read")
		return
	}
	defer doc.Close()

	if attachment {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", ctrl.store.DocumentName()))
	}
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, doc); err != nil {
		tool.DefaultLogger.Errorf("[Download] Failed to stream config file: %v", err)
	}
}

// HandleDownload streams the document as an attachment.
// GET /download
func (ctrl *ConfigController) HandleDownload(c *gin.Context) {
	ctrl.streamDocument(c, true)
}

// HandleConfigJSON streams the document inline.
// GET /config.json
func (ctrl *ConfigController) HandleConfigJSON(c *gin.Context) {
	ctrl.streamDocument(c, false)
}

// HandleRestore replaces the document with the uploaded file and reloads it.
// The part is streamed straight into flash; nothing is buffered whole.
// POST /restore (multipart, field restoreFile)
func (ctrl *ConfigController) HandleRestore(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRestoreBytes)
	reader, err := c.Request.MultipartReader()
	if err != nil {
		tool.DefaultLogger.Errorf("[Restore] Not a multipart request: %v", err)
		ctrl.flashes.Push(c, types.FlashDanger, "Restore failed: expected a file upload.")
		redirectHome(c)
		return
	}

	part, err := nextFilePart(reader, RestoreFieldName)
	if err != nil {
		tool.DefaultLogger.Errorf("[Restore] No file in upload: %v", err)
		ctrl.flashes.Push(c, types.FlashDanger, "Restore failed: no file received.")
		redirectHome(c)
		return
	}
	defer part.Close()

	state, err := ctrl.store.Restore(part)
	switch {
	case state == tool.StateLoaded:
		ctrl.flashes.Push(c, types.FlashSuccess, "Configuration restored.")
		ctrl.broadcast(types.NotifyTypeConfigRestored, "Configuration restored", "")
	case errors.Is(err, tool.ErrDocumentCorrupt), errors.Is(err, tool.ErrDocumentUnreadable):
		ctrl.flashes.Push(c, types.FlashWarning, "Uploaded file is not a valid configuration; defaults are active.")
		ctrl.broadcast(types.NotifyTypeConfigRestored, "Configuration restored", "Document corrupt, defaults active")
	default:
		ctrl.flashes.Push(c, types.FlashDanger, fmt.Sprintf("Restore failed: %v", err))
	}
	redirectHome(c)
}

func nextFilePart(reader *multipart.Reader, field string) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == field {
			return part, nil
		}
		_ = part.Close()
	}
}

// HandleFactory deletes the document and reloads defaults.
// GET /factory
func (ctrl *ConfigController) HandleFactory(c *gin.Context) {
	if _, err := ctrl.store.Reset(); err != nil {
		tool.DefaultLogger.Errorf("[Factory] Reset failed: %v", err)
		ctrl.flashes.Push(c, types.FlashDanger, "Factory reset failed: "+err.Error())
	} else {
		ctrl.flashes.Push(c, types.FlashInfo, "Factory defaults restored.")
		ctrl.broadcast(types.NotifyTypeConfigReset, "Factory reset", "")
	}
	redirectHome(c)
}
