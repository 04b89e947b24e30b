package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"dooyagateway/pkg/apis"
	"dooyagateway/pkg/apis/response"
	dooyaruntime "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	v1 "dooyagateway/pkg/v1"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/klog/v2"
)

func InstallHandler(group *gin.RouterGroup, mgr *Manager) {
	group.POST("/covers", createCover(mgr))
	group.DELETE("/covers/:id", deleteCover(mgr))
	group.PATCH("/covers/:id", patchCoverById(mgr))
	group.PUT("/covers/:id", updateCoverById(mgr))
	group.GET("/covers", listCovers(mgr))
	group.GET("/covers/:id", getCoverById(mgr))
	group.GET("/covers/:id/status", getCoverStatusById(mgr))
	group.PUT("/covers/:id/action", controlCoverById(mgr))
	group.PUT("/covers/:id/address", programCoverAddressById(mgr))
	group.PUT("/covers/:id/:status", switchCoverStatusById(mgr))
}

func createCover(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			klog.V(2).InfoS("Failed to get request body", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		var target struct {
			DeviceType string `json:"deviceType"`
		}
		if err := json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&target); err != nil {
			klog.V(2).InfoS("Failed to parse device type", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		newObject, ok := v1.DeviceTypeMap[target.DeviceType]
		if !ok {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
			return
		}
		object := newObject()
		if err := c.ShouldBindJSON(object); err != nil {
			klog.V(2).InfoS("Failed to parse device", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		d, err := mgr.CreateDevice(object)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}

		c.Header(apis.ETag, fmt.Sprintf("%s", d.GetVersion()))
		c.Header(apis.Location, fmt.Sprintf("https://%s%s/%s", c.Request.Host, c.Request.RequestURI, d.GetID()))
		c.JSON(http.StatusCreated, d)
	}
}

func deleteCover(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}
		device, err := mgr.DeleteDevice(id, eTag)
		if err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
			} else if errors.Is(err, apis.ErrMismatch) {
				c.Status(http.StatusPreconditionFailed)
			} else {
				c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			}
			return
		}
		c.JSON(http.StatusOK, device)
	}
}

func patchCoverById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		contentType := c.GetHeader("Content-Type")
		// Remove "; charset=" if included in header.
		if idx := strings.Index(contentType, ";"); idx > 0 {
			contentType = contentType[:idx]
		}

		if !patchTypes.Has(contentType) {
			c.Status(http.StatusUnsupportedMediaType)
			return
		}

		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}

		patchBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			klog.V(3).InfoS("Failed to read", "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		id := c.Param("id")
		old, err := mgr.GetDeviceById(id, true)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		versionedJS, err := json.Marshal(old)
		if err != nil {
			klog.V(3).InfoS("Failed to marshal", "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		patchedJS, err := applyJSPatch(types.PatchType(contentType), patchBytes, versionedJS)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}

		newObj := v1.DeviceTypeMap[old.GetDeviceType()]()
		if err := json.NewDecoder(bytes.NewBuffer(patchedJS)).Decode(newObj); err != nil {
			klog.V(3).InfoS("Failed to decode", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		updated, err := mgr.UpdateDeviceById(id, eTag, newObj)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				c.Status(http.StatusNotFound)
			case errors.Is(err, apis.ErrMismatch):
				c.Status(http.StatusPreconditionFailed)
			default:
				if response.IsResponseError(err) {
					c.JSON(http.StatusBadRequest, response.NewMultiError(err))
				} else {
					c.Status(http.StatusInternalServerError)
				}
			}
			return
		}

		c.Header(apis.ETag, updated.GetVersion())
		c.JSON(http.StatusOK, updated)
	}
}

func updateCoverById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		eTag := c.GetHeader(apis.IfMatch)
		if len(eTag) == 0 {
			c.Status(http.StatusPreconditionRequired)
			return
		}

		id := c.Param("id")
		old, err := mgr.GetDeviceById(id, true)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		newObj := v1.DeviceTypeMap[old.GetDeviceType()]()
		if err := json.NewDecoder(c.Request.Body).Decode(newObj); err != nil {
			klog.V(3).InfoS("Failed to decode", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		updated, err := mgr.UpdateDeviceById(id, eTag, newObj)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				c.Status(http.StatusNotFound)
			case errors.Is(err, apis.ErrMismatch):
				c.Status(http.StatusPreconditionFailed)
			default:
				if response.IsResponseError(err) {
					c.JSON(http.StatusBadRequest, response.NewMultiError(err))
				} else {
					c.Status(http.StatusInternalServerError)
				}
			}
			return
		}

		if updated != nil {
			c.Header(apis.ETag, updated.GetVersion())
		}
		c.JSON(http.StatusOK, updated)
	}
}

func listCovers(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		query := c.Request.URL.Query()
		exploded := false
		filter := runtime.DeviceFilter{}
		if len(query) > 0 {
			v := query.Get(apis.Filter)
			if len(v) > 0 {
				if err := json.Unmarshal([]byte(v), &filter); err != nil {
					c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
					return
				}
			}
			exploded, _ = strconv.ParseBool(query.Get("exploded"))
		}
		rds, _ := mgr.ListDevices(&filter, exploded)

		c.JSON(http.StatusOK, &runtime.ResponseModel{Covers: rds})
	}
}

func getCoverById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		query := c.Request.URL.Query()
		exploded := false
		if len(query) > 0 {
			exploded, _ = strconv.ParseBool(query.Get("exploded"))
		}
		rd, err := mgr.GetDeviceById(id, exploded)
		if err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.Header(apis.ETag, fmt.Sprintf("%s", rd.GetVersion()))
		c.JSON(http.StatusOK, rd)
	}
}

func getCoverStatusById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		status, err := mgr.GetCoverStatus(id)
		if err != nil {
			c.JSON(http.StatusNotFound, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func switchCoverStatusById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		status := c.Param("status")
		if err := mgr.SwitchDeviceStatus(id, status); err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
			} else {
				c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			}
			return
		}
		c.Status(http.StatusAccepted)
	}
}

func controlCoverById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		action := &v1.CoverAction{}
		if err := c.ShouldBindJSON(action); err != nil {
			klog.V(3).InfoS("Failed to parse action", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		if err := mgr.DeliverAction(id, action); err != nil {
			c.JSON(http.StatusBadRequest, err)
			return
		}

		c.Status(http.StatusAccepted)
	}
}

func programCoverAddressById(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()

		id := c.Param("id")
		assignment := &v1.AddressAssignment{}
		if err := c.ShouldBindJSON(assignment); err != nil {
			klog.V(3).InfoS("Failed to parse address assignment", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		if err := mgr.ProgramAddress(id, *assignment.DeviceIdLow, *assignment.DeviceIdHigh); err != nil {
			switch {
			case errors.Is(err, dooyaruntime.ErrProgramListen), errors.Is(err, dooyaruntime.ErrProgramConfirm):
				c.JSON(http.StatusGatewayTimeout, response.NewMultiError(response.ErrDeviceNoResponse(id)))
			default:
				c.JSON(http.StatusBadRequest, err)
			}
			return
		}

		c.Status(http.StatusOK)
	}
}

func applyJSPatch(patchType types.PatchType, patchBytes, versionedJS []byte) (patchedJS []byte, err error) {
	switch patchType {
	case types.JSONPatchType:
		patchObj, err := jsonpatch.DecodePatch(patchBytes)
		if err != nil {
			return nil, response.ErrMalformedJSON
		}
		if len(patchObj) > maxJSONPatchOperations {
			klog.V(3).InfoS("Too many json patch operations", "count", len(patchObj))
			return nil, response.ErrTooManyJsonPatchOperations(maxJSONPatchOperations)
		}
		patchedJS, err := patchObj.Apply(versionedJS)
		if err != nil {
			klog.V(3).InfoS("Failed to apply json patch", "err", err)
			return nil, response.ErrMalformedJSON
		}
		return patchedJS, nil
	case types.MergePatchType:
		patchedJS, err = jsonpatch.MergePatch(versionedJS, patchBytes)
		if err != nil {
			klog.V(3).InfoS("Failed to apply json merge patch", "err", err)
			return nil, response.ErrMalformedJSON
		}
		return patchedJS, err
	default:
		// only here as a safety net - gin filters content-type
		return nil, fmt.Errorf("unknown Content-Type header for patch: %v", patchType)
	}
}
