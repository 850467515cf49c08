/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"errors"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/report"
)

const requestIDHeader = "X-Request-Id"

type HttpError struct {
	code int
	error
}

func (e HttpError) Error() string {
	return e.error.Error()
}

func NewHttpError(code int, err error) HttpError {
	return HttpError{
		code:  code,
		error: err,
	}
}

type server struct {
	controller controller
}

func newRouter(s server, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithFormatter(lib.JsonLogFormatter), gin.Recovery(), requestID, corsMiddleware(allowedOrigins))
	s.RegisterRoutes(r)
	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	conf := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = allowedOrigins
	}
	conf.AllowHeaders = append(conf.AllowHeaders, requestIDHeader)
	conf.ExposeHeaders = []string{requestIDHeader, "X-Cache"}
	return cors.New(conf)
}

func (s server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Health)
	r.POST("/agreement", s.Agreement)
}

func (s server) Health(c *gin.Context) {
	if !s.controller.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s server) Agreement(c *gin.Context) {
	format, err := report.ParseFormat(c.DefaultQuery("format", string(report.JSON)))
	if err != nil {
		handleError(c, NewHttpError(http.StatusBadRequest, err))
		return
	}
	mode, err := export.ParseMode(c.Query("task_type"))
	if err != nil {
		handleError(c, NewHttpError(http.StatusBadRequest, err))
		return
	}

	body, err := readBody(c, s.controller.maxBytes)
	if err != nil {
		handleError(c, err)
		return
	}

	entry, cached, err := s.controller.Agreement(c.GetString(lib.RequestIDKey), body, mode, format)
	if err != nil {
		handleError(c, err)
		return
	}

	if cached {
		c.Header("X-Cache", "hit")
	} else {
		c.Header("X-Cache", "miss")
	}
	c.Data(http.StatusOK, entry.ContentType, entry.Body)
}

// readBody reads at most one byte past the limit so that the loader reports an
// oversized export.
func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, NewHttpError(http.StatusBadRequest, errors.New("request body missing"))
	}
	if maxBytes <= 0 {
		maxBytes = export.DefaultMaxBytes
	}
	body, err := ioutil.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
	if err != nil {
		return nil, NewHttpError(http.StatusBadRequest, err)
	}
	if len(body) == 0 {
		return nil, NewHttpError(http.StatusBadRequest, errors.New("request body missing"))
	}
	return body, nil
}

func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(lib.RequestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		abort(c, 500, errors.New("abort called on nil error"))
		return
	}
	var httpErr HttpError
	if errors.As(err, &httpErr) {
		abort(c, httpErr.code, httpErr.error)
		return
	}
	abort(c, 500, err)
}

func abort(c *gin.Context, code int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, map[string]interface{}{
		"status":  code,
		"message": err.Error(),
	})
}
