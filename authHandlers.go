package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/utils"
)

type loginRequest struct {
	LoginId string `json:"login_id" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.Login(c.Request.Context(), req.LoginId, req.Secret)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := utils.GetSessionFromContext(c.Request.Context())
		if err := models.Logout(c.Request.Context(), session.TokenId, session.ExpiresAt); err != nil {
			config.LogError(config.GetLogger(), "authHandlers.go", "logoutHandler", "Logout", session.AccountId, err)
			respondError(c, models.ErrStorageUnavailable)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := utils.GetSessionFromContext(c.Request.Context())
		c.JSON(http.StatusOK, session)
	}
}

type periodResponse struct {
	Period   string `json:"period"`
	Label    string `json:"label"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Closed   bool   `json:"closed"`
}

func currentPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := models.PeriodAt(time.Now(), config.ReportLocation())
		closed, err := models.IsPeriodClosed(c.Request.Context(), p.String())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, periodResponse{
			Period:   p.String(),
			Label:    p.Label(),
			Previous: p.Previous().String(),
			Next:     p.Next().String(),
			Closed:   closed,
		})
	}
}

func listCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.DefectCategories())
	}
}
