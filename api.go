package paygate

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/web3pay/paygate/common"
	"github.com/web3pay/paygate/schema"
)

func (s *Paygate) runAPI(port string) {
	r := s.engine
	r.Use(common.CORSMiddleware())
	r.Use(common.LimiterMiddleware(600, "M", nil))
	v1 := r.Group("/")
	{
		// orders
		v1.POST("/order", s.createOrder)
		v1.GET("/order/:id", s.getOrder)
		v1.GET("/order/:id/payment-uri", s.getOrderPaymentURI)
		v1.GET("/orders/:userId", s.getUserOrders)

		// payment verification
		v1.POST("/payment/verify", s.verifyPayment)
		v1.GET("/payment/auto-detect/:id", s.autoDetectPayment)
		v1.GET("/payment/history/:id", s.getVerificationHistory)

		// monitor jobs
		v1.POST("/monitor/:id", s.startMonitor)
		v1.GET("/monitor/:id", s.getMonitor)
		v1.POST("/monitor/kill/:id", s.killMonitor)
		v1.GET("/monitor", s.getMonitorCounts)
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func (s *Paygate) createOrder(c *gin.Context) {
	req := schema.CreateOrderReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	ord, err := s.CreateOrder(req)
	if err != nil {
		switch err {
		case ErrNullUserId, ErrInvalidAddress, ErrInvalidAmount,
			schema.ErrUnsupportedToken, schema.ErrUnsupportedNetwork, schema.ErrAmountPrecision:
			errorResponse(c, err.Error())
		default:
			internalErrorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, ord)
}

func (s *Paygate) getOrder(c *gin.Context) {
	ord, err := s.GetOrder(c.Param("id"))
	if err != nil {
		if err == schema.ErrOrderNotFound {
			notFoundResponse(c, err.Error())
		} else {
			internalErrorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, ord)
}

func (s *Paygate) getOrderPaymentURI(c *gin.Context) {
	resp, err := s.OrderPaymentURI(c.Param("id"))
	if err != nil {
		if err == schema.ErrOrderNotFound {
			notFoundResponse(c, err.Error())
		} else {
			errorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Paygate) getUserOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	ords, err := s.GetOrdersByUser(c.Param("userId"), page, size)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, ords)
}

func (s *Paygate) verifyPayment(c *gin.Context) {
	req := schema.VerifyReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	result, err := s.VerifyPayment(c.Request.Context(), req.OrderId, req.TransactionHash, req.UserId)
	if err != nil {
		switch err {
		case ErrNullOrderId, ErrNullTxHash:
			errorResponse(c, err.Error())
		default:
			internalErrorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Paygate) autoDetectPayment(c *gin.Context) {
	result, err := s.AutoDetect(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Paygate) getVerificationHistory(c *gin.Context) {
	records, err := s.VerificationHistory(c.Param("id"))
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Paygate) startMonitor(c *gin.Context) {
	req := schema.MonitorReq{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, err.Error())
			return
		}
	}
	job, err := s.StartMonitoring(c.Param("id"), req)
	if err != nil {
		switch err {
		case schema.ErrOrderNotFound:
			notFoundResponse(c, err.Error())
		case ErrOrderNotOpen:
			errorResponse(c, err.Error())
		default:
			internalErrorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Paygate) getMonitor(c *gin.Context) {
	job, err := s.GetMonitorJob(c.Param("id"))
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Paygate) killMonitor(c *gin.Context) {
	if err := s.KillMonitor(c.Param("id")); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, "ok")
}

func (s *Paygate) getMonitorCounts(c *gin.Context) {
	c.JSON(http.StatusOK, s.MonitorCounts())
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func notFoundResponse(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}
