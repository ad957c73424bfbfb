// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/labels"
	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

func InstallHandler(group *gin.RouterGroup, dev Device) {
	group.GET("/snapshot", getSnapshot(dev))
	group.GET("/device", getDevice(dev))
	group.GET("/status", getStatus(dev))
	group.POST("/registers/:key", writeRegister(dev))
	group.POST("/refresh", refresh(dev))
}

// snapshotView adds the connection state and option labels.
func snapshotView(s *poller.Snapshot, state status.ConnectionState) gin.H {
	return gin.H{
		"seq":            s.Seq,
		"at":             s.At,
		"ok":             s.OK,
		"firmwareFamily": s.Family,
		"state":          state,
		"values":         s.Values(),
		"options":        OptionLabels(s),
	}
}

// OptionLabels maps select registers present in s to their labels.
// Values without a label are left out.
func OptionLabels(s *poller.Snapshot) map[string]string {
	out := map[string]string{}
	for _, key := range labels.Keys() {
		raw, ok := s.Raw(key)
		if !ok {
			continue
		}
		tbl, _ := labels.For(key)
		if l, ok := tbl.Label(raw); ok {
			out[key] = l
		}
	}
	return out
}

func getSnapshot(dev Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, snapshotView(dev.Snapshot(), dev.Health().State))
	}
}

// deviceView is the identity plus whether the device has ever answered
// a full poll.
type deviceView struct {
	device.Info
	Trusted bool `json:"trusted"`
}

func getDevice(dev Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deviceView{Info: dev.DeviceInfo(), Trusted: dev.Trusted()})
	}
}

type statusView struct {
	State               status.ConnectionState `json:"state"`
	Available           bool                   `json:"available"`
	ConsecutiveFailures int                    `json:"consecutiveFailures"`
	LastError           string                 `json:"lastError,omitempty"`
	LastErrorCode       uint16                 `json:"lastErrorCode,omitempty"`
	LastSuccess         *time.Time             `json:"lastSuccess,omitempty"`
	SecondsInError      uint16                 `json:"secondsInError"`
}

func getStatus(dev Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := dev.Health()
		v := statusView{
			State:               h.State,
			Available:           h.State.Available(),
			ConsecutiveFailures: h.ConsecutiveFailures,
			LastError:           h.LastError,
			LastErrorCode:       h.LastErrorCode,
			SecondsInError:      h.SecondsInError(time.Now()),
		}
		if !h.LastSuccess.IsZero() {
			v.LastSuccess = &h.LastSuccess
		}
		c.JSON(http.StatusOK, v)
	}
}

type writeRequest struct {
	Value  *float64 `json:"value"`
	Option *string  `json:"option"`
}

func writeRegister(dev Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if _, ok := dev.Definition(key); !ok {
			c.JSON(http.StatusNotFound, newError(ErrCodeNotFound, "Register not found.", nil))
			return
		}

		var req writeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(3).InfoS("Failed to decode", "err", err)
			c.JSON(http.StatusBadRequest, errMalformedJSON)
			return
		}
		if (req.Value == nil) == (req.Option == nil) {
			c.JSON(http.StatusBadRequest, errRequestBody)
			return
		}

		var value float64
		if req.Value != nil {
			value = *req.Value
		} else {
			tbl, ok := labels.For(key)
			if !ok {
				c.JSON(http.StatusBadRequest, newError(ErrCodeUnknownOption, "Register has no options.", nil))
				return
			}
			raw, ok := tbl.Value(*req.Option)
			if !ok {
				c.JSON(http.StatusBadRequest, newError(ErrCodeUnknownOption, "Unknown option.", nil))
				return
			}
			value = float64(raw)
		}

		if err := dev.Write(c.Request.Context(), key, value); err != nil {
			switch {
			case errors.Is(err, poller.ErrValidation):
				c.JSON(http.StatusBadRequest, newError(ErrCodeInvalidValue, "Invalid value.", err))
			case errors.Is(err, poller.ErrWriteUnconfirmed):
				c.JSON(http.StatusConflict, newError(ErrCodeUnconfirmed, "Write not confirmed by device.", err))
			default:
				klog.V(2).InfoS("Write failed", "key", key, "err", err)
				c.JSON(http.StatusBadGateway, newError(ErrCodeDevice, "Device error.", err))
			}
			return
		}

		s := dev.Snapshot()
		out := gin.H{"key": key}
		if v, ok := s.Value(key); ok {
			out["value"] = v
		}
		if l, ok := OptionLabels(s)[key]; ok {
			out["option"] = l
		}
		c.JSON(http.StatusOK, out)
	}
}

func refresh(dev Device) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := dev.Refresh(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, newError(ErrCodeDevice, "Device error.", err))
			return
		}
		c.JSON(http.StatusOK, snapshotView(s, dev.Health().State))
	}
}
