package api

import (
	"net/http"

	models "MarketSage/internal/domain/models"
	"MarketSage/internal/service/ratelimit"
	"MarketSage/internal/usecase"
	xhttp "MarketSage/pkg/http"
	xlogger "MarketSage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisEchoHandler exposes the analysis and prediction surface over Echo.
type AnalysisEchoHandler struct {
	logger    *xlogger.Logger
	analyzer  *usecase.AnalyzerUseCase
	predictor *usecase.PredictorUseCase
	verifier  *usecase.VerifierUseCase
	rl        *ratelimit.Limiter
}

func NewAnalysisEchoHandler(
	logger *xlogger.Logger,
	analyzer *usecase.AnalyzerUseCase,
	predictor *usecase.PredictorUseCase,
	verifier *usecase.VerifierUseCase,
) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{
		logger:    logger,
		analyzer:  analyzer,
		predictor: predictor,
		verifier:  verifier,
		rl:        ratelimit.New(),
	}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analysis", h.Analyze)
	g.POST("/scan", h.Scan)
	g.POST("/predictions", h.Predict)
	g.GET("/predictions", h.History)
	g.GET("/accuracy", h.Accuracy)
	g.POST("/verify", h.Verify)
}

func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":analysis", 10, 5) {
		return h.rateLimited(c, "analysis")
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", 5, 2) {
		return h.rateLimited(c, "scan")
	}

	res, err := h.analyzer.Scan(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("scan usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":predictions", 5, 2) {
		return h.rateLimited(c, "predictions")
	}

	res, err := h.predictor.Predict(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *AnalysisEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.History(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Accuracy(c echo.Context) error {
	req := &models.AccuracyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Accuracy(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("accuracy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Verify(c echo.Context) error {
	req := &models.VerifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":verify", 2, 0.5) {
		return h.rateLimited(c, "verify")
	}

	res, err := h.verifier.Sweep(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Error("verify usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) rateLimited(c echo.Context, endpoint string) error {
	h.logger.Warn("rate limited",
		xlogger.String("endpoint", endpoint),
		xlogger.String("remote", c.RealIP()),
	)
	return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
}
