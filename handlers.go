package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"numcap/models"
	"numcap/pkg/solver"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/token", tokenHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.POST("/solve", solveHandler)
	authGroup.GET("/attempts", listAttemptsHandler)
	authGroup.GET("/attempts/summary", attemptSummaryHandler)
	authGroup.GET("/attempts/:id", getAttemptHandler)
	authGroup.POST("/clients", createClientHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		name, _ := claims["client"].(string)
		id, _ := claims["client_id"].(float64) // JSON numbers decode as float64
		role, _ := claims["role"].(string)
		if name == "" || id <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		c.Set("client", name)
		c.Set("client_id", uint(id))
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

// issueToken signs an access token for client valid for ttl.
func issueToken(client models.Client, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client":    client.Name,
		"client_id": client.ID,
		"role":      client.Role.Name,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

func tokenHandler(c *gin.Context) {
	var req struct {
		Client string `json:"client" binding:"required"`
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := AuthenticateClient(req.Client, req.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueToken(client, time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "expires_in": int(time.Hour.Seconds())})
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == models.RoleAdministrator
}

// createClientHandler lets an administrator provision another API client.
func createClientHandler(c *gin.Context) {
	if !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var req struct {
		Client string `json:"client" binding:"required"`
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterClient(req.Client, req.Secret); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client registered"})
}

// solveHandler decodes an uploaded captcha image and records the attempt.
func solveHandler(c *gin.Context) {
	clientName := c.GetString("client")
	clientID := c.GetUint("client_id")
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if limit := maxUploadBytes(); file.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file too large (max %d bytes)", limit)})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	start := time.Now()
	res, solveErr := solver.SolveReader(f)
	took := time.Since(start)
	_ = f.Close()

	name := filepath.Base(file.Filename)
	attempt := models.NewAttempt(models.SourceAPI, name, res, solveErr, took)
	attempt.ClientID = &clientID
	attempt.StorePath = storeUpload(c, clientName, name)
	recordAttempt(&attempt)

	if solveErr != nil {
		body := gin.H{"error": solveErr.Error(), "reason": attempt.Reason, "attempt_id": attempt.ID}
		if attempt.Signature != nil {
			body["signature"] = *attempt.Signature
		}
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": res.Value, "digits": attempt.Digits, "attempt_id": attempt.ID})
}

// storeUpload keeps a copy of the image under UPLOAD_BASE/<client>/ and returns
// its path including UPLOAD_BASE (slash-separated), or "" when saving failed.
// Like batch store paths it resolves from the working directory.
func storeUpload(c *gin.Context, clientName, name string) string {
	file, err := c.FormFile("file")
	if err != nil {
		return ""
	}
	folder := sanitizeSegment(clientName)
	rel := folder + "/" + time.Now().UTC().Format("20060102T150405.000") + "-" + sanitizeSegment(name)
	if err := os.MkdirAll(filepath.Join(uploadBaseDir(), folder), 0755); err != nil {
		return ""
	}
	dst := filepath.Join(uploadBaseDir(), rel)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return ""
	}
	return filepath.ToSlash(dst)
}

// sanitizeSegment keeps a path element to a safe character set.
func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "_"
	}
	return s
}

// listAttemptsHandler returns recent attempts; administrators see every client's.
func listAttemptsHandler(c *gin.Context) {
	var items []models.Attempt
	q := db.Model(&models.Attempt{})
	if !isAdmin(c) {
		q = q.Where("client_id = ?", c.GetUint("client_id"))
	}
	if v := c.Query("success"); v != "" {
		q = q.Where("success = ?", v == "true" || v == "1")
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// getAttemptHandler returns a single attempt if admin or owner.
func getAttemptHandler(c *gin.Context) {
	var a models.Attempt
	if err := db.First(&a, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && (a.ClientID == nil || *a.ClientID != c.GetUint("client_id")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// attemptSummaryHandler returns per-day totals and successes.
func attemptSummaryHandler(c *gin.Context) {
	type Result struct {
		Day       string `json:"day"`
		Total     int64  `json:"total"`
		Succeeded int64  `json:"succeeded"`
	}
	q := db.Model(&models.Attempt{})
	if !isAdmin(c) {
		q = q.Where("client_id = ?", c.GetUint("client_id"))
	}
	rows, err := q.Select("to_char(created_at, 'YYYY-MM-DD') as day, count(*) as total, sum(case when success then 1 else 0 end) as succeeded").
		Group("day").Order("day").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()
	results := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Day, &r.Total, &r.Succeeded); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
			return
		}
		results = append(results, r)
	}
	c.JSON(http.StatusOK, results)
}
