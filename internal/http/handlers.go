package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"clinic/internal/domain"
	"clinic/internal/repository"
	"clinic/internal/service"
)

type Server struct {
	engine  *gin.Engine
	catalog *service.CatalogService
	orders  *service.OrderService
	hub     http.HandlerFunc
	logger  *logrus.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithWebSocket mounts h on /ws.
func WithWebSocket(h http.HandlerFunc) Option { return func(s *Server) { s.hub = h } }

func NewServer(catalog *service.CatalogService, orders *service.OrderService, logger *logrus.Logger, opts ...Option) *Server {
	r := gin.New()
	s := &Server{engine: r, catalog: catalog, orders: orders, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	r.Use(requestLogger(logger), gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if s.hub != nil {
		s.engine.GET("/ws", gin.WrapF(s.hub))
	}

	v1 := s.engine.Group("/api/v1")
	{
		materials := v1.Group("/materials")
		materials.GET("", s.listMaterials)
		materials.GET(":id", s.getMaterial)

		types := v1.Group("/order-types")
		types.GET("", s.listOrderTypes)
		types.GET(":id", s.getOrderType)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.PUT(":id/status", s.setStatus)
		orders.PUT(":id/materials", s.setMaterials)
		orders.PUT(":id/materials/:materialId", s.setMaterialQuantity)
		orders.PUT(":id/intake", s.setIntake)
		orders.PUT(":id/intake/:fieldId", s.setIntakeField)
		orders.GET(":id/quote", s.quoteOrder)
		orders.GET(":id/validation", s.validateOrder)
		orders.POST(":id/complete", s.completeOrder)

		v1.GET("/summary", s.summary)
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
		}).Debug("Request completed")
	}
}

// Catalog handlers

// @Summary List materials
// @Tags catalog
// @Produce json
// @Success 200 {array} domain.Material
// @Router /materials [get]
func (s *Server) listMaterials(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.ListMaterials())
}

// @Summary Get material by id
// @Tags catalog
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} domain.Material
// @Failure 404 {object} map[string]string
// @Router /materials/{id} [get]
func (s *Server) getMaterial(c *gin.Context) {
	m, err := s.catalog.GetMaterial(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary List order types
// @Tags catalog
// @Produce json
// @Success 200 {array} domain.OrderType
// @Router /order-types [get]
func (s *Server) listOrderTypes(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.ListOrderTypes())
}

// @Summary Get order type by id
// @Tags catalog
// @Produce json
// @Param id path string true "Order type ID"
// @Success 200 {object} domain.OrderType
// @Failure 404 {object} map[string]string
// @Router /order-types/{id} [get]
func (s *Server) getOrderType(c *gin.Context) {
	t, err := s.catalog.GetOrderType(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Order handlers
type createOrderReq struct {
	PatientName string `json:"patient_name"`
	PatientID   string `json:"patient_id"`
	Type        string `json:"type"`
}

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.CreateOrder(c, req.PatientName, req.PatientID, req.Type)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary List orders
// @Tags orders
// @Produce json
// @Param status query string false "Status"
// @Param type query string false "Order type ID"
// @Param created_from query string false "RFC3339, inclusive"
// @Param created_to query string false "RFC3339, exclusive"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	var f repository.OrderFilter
	if v := c.Query("status"); v != "" {
		f.Status = domain.OrderStatus(v)
		if !f.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	f.TypeID = c.Query("type")
	for param, dst := range map[string]**time.Time{"created_from": &f.CreatedFrom, "created_to": &f.CreatedTo} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
			return
		}
		*dst = &ts
	}
	list, err := s.orders.ListOrders(c, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Change order status
// @Description Moves an open order between pending and in_progress.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body setStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [put]
func (s *Server) setStatus(c *gin.Context) {
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.SetStatus(c, c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setMaterialsReq struct {
	Materials domain.Selection `json:"materials"`
}

// @Summary Replace material selection
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body setMaterialsReq true "Material quantities"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/materials [put]
func (s *Server) setMaterials(c *gin.Context) {
	var req setMaterialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.SetMaterialSelection(c, c.Param("id"), req.Materials)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setQuantityReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set one material quantity
// @Description A quantity of zero or less removes the material.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param materialId path string true "Material ID"
// @Param input body setQuantityReq true "Quantity"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/materials/{materialId} [put]
func (s *Server) setMaterialQuantity(c *gin.Context) {
	var req setQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.SetMaterialQuantity(c, c.Param("id"), c.Param("materialId"), req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setIntakeReq struct {
	FormData domain.Intake `json:"form_data"`
}

// @Summary Replace intake data
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body setIntakeReq true "Intake"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/intake [put]
func (s *Server) setIntake(c *gin.Context) {
	var req setIntakeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.SetIntake(c, c.Param("id"), req.FormData)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type setFieldReq struct {
	Value any `json:"value"`
}

// @Summary Record one intake field
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param fieldId path string true "Form field ID"
// @Param input body setFieldReq true "Value"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/intake/{fieldId} [put]
func (s *Server) setIntakeField(c *gin.Context) {
	var req setFieldReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.SetIntakeField(c, c.Param("id"), c.Param("fieldId"), req.Value)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type quoteResp struct {
	service.PriceQuote
	Display string `json:"display"`
}

// @Summary Price an order
// @Description Live price with breakdown; completed orders report their frozen total.
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} quoteResp
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/quote [get]
func (s *Server) quoteOrder(c *gin.Context) {
	q, err := s.orders.Quote(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResp{PriceQuote: q, Display: q.Total.StringFixed(2)})
}

// @Summary Check completion eligibility
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/validation [get]
func (s *Server) validateOrder(c *gin.Context) {
	res, err := s.orders.Validate(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                res.OK(),
		"missing_fields":    res.MissingFields,
		"missing_materials": res.MissingMaterials,
	})
}

// @Summary Complete order
// @Description Freezes the total and marks the order completed if nothing is missing.
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /orders/{id}/complete [post]
func (s *Server) completeOrder(c *gin.Context) {
	o, err := s.orders.Complete(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Dashboard counters
// @Tags orders
// @Produce json
// @Success 200 {object} service.Summary
// @Router /summary [get]
func (s *Server) summary(c *gin.Context) {
	sum, err := s.orders.Summary(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	body := gin.H{"error": err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body["missing_fields"] = ve.MissingFields
		body["missing_materials"] = ve.MissingMaterials
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	c.JSON(status, body)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
