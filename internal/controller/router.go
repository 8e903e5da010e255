package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/controller/handlers"
	"github.com/xuanlam2007/scholium/internal/controller/middleware"
)

// NewRouter регистрирует все маршруты API
func NewRouter(h *handlers.Handlers, jwtSecret []byte, logger *zap.Logger) *gin.Engine {
	handlers.InitValidation()

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logger(logger))

	r.GET("/healthz", h.Health)

	api := r.Group("/api", middleware.Auth(jwtSecret))

	// Группы
	api.POST("/scholiums", h.CreateScholium)
	api.GET("/scholiums", h.ListScholiums)
	api.POST("/scholiums/join", h.JoinScholium)

	scholium := api.Group("/scholiums/:id")
	scholium.GET("", h.GetScholium)
	scholium.PATCH("", h.RenameScholium)
	scholium.DELETE("", h.DeleteScholium)
	scholium.POST("/access-id", h.RenewAccessID)
	scholium.POST("/host", h.TransferHost)

	// Участники
	scholium.GET("/membership", h.Membership)
	scholium.GET("/members", h.ListMembers)
	scholium.DELETE("/members/me", h.QuitScholium)
	api.DELETE("/members/:memberId", h.RemoveMember)
	api.PUT("/members/:memberId/permissions", h.UpdatePermissions)
	api.PUT("/members/:memberId/cohost", h.SetCohost)

	// Сетка слотов
	scholium.GET("/timeslots", h.GetSlots)
	scholium.PUT("/timeslots", h.ReplaceSlots)
	scholium.POST("/timeslots", h.AddSlot)
	scholium.PATCH("/timeslots/:index", h.EditSlot)
	scholium.DELETE("/timeslots/:index", h.RemoveSlot)
	scholium.GET("/timetable.png", h.Timetable)

	// Задания и предметы
	scholium.GET("/homework", h.ListHomework)
	scholium.POST("/homework", h.CreateHomework)
	scholium.GET("/homework/upcoming", h.UpcomingHomework)
	scholium.PUT("/homework/:hid", h.UpdateHomework)
	scholium.DELETE("/homework/:hid", h.DeleteHomework)
	scholium.POST("/homework/:hid/completion", h.ToggleCompletion)

	scholium.GET("/subjects", h.ListSubjects)
	scholium.POST("/subjects", h.CreateSubject)
	scholium.PUT("/subjects/:sid", h.UpdateSubject)
	scholium.DELETE("/subjects/:sid", h.DeleteSubject)

	// Потоки событий
	api.GET("/realtime/events", h.Events)
	api.GET("/realtime/ws", h.Socket)
	api.POST("/realtime/broadcast", h.Broadcast)

	return r
}
