package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/session"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	patientEmailKey = "patientEmail"
	sessionTokenKey = "sessionToken"
)

type PatientStore interface {
	FindPatientByEmail(ctx context.Context, email string) (*db.PatientModel, error)
	SavePatient(ctx context.Context, m db.PatientModel) error
}

type AuthService struct {
	patients PatientStore
	sessions session.Store
}

func ProvideAuthService(patients PatientStore, sessions session.Store) *AuthService {
	return &AuthService{
		patients: patients,
		sessions: sessions,
	}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PatientName string `json:"patient_name"`
	DateOfBirth string `json:"date_of_birth"`
}

func (s *AuthService) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	existing, err := s.patients.FindPatientByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Error("Registration lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Patient already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	now := time.Now().UnixMilli()
	account := db.NewPatientModel(email)
	account.PasswordHash = string(hash)
	account.PatientName = strings.TrimSpace(req.PatientName)
	account.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	account.CreatedOn = now
	account.UpdatedOn = now

	if err := s.patients.SavePatient(c.Request.Context(), *account); err != nil {
		logger.Error("Registration save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	logger.Info("New patient registered", zap.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"message": "Registration successful",
		"email":   email,
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	patient, err := s.patients.FindPatientByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Error("Login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if patient == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte(password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	patientName := patient.PatientName
	if patientName == "" {
		patientName = "N/A"
	}

	token, err := s.sessions.Create(email, patientName)
	if err != nil {
		logger.Error("Session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	logger.Info("Patient logged in", zap.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"session_token": token,
		"patient_name":  patientName,
		"email":         email,
	})
}

// Logout removes the presented session unconditionally.
func (s *AuthService) Logout(c *gin.Context) {
	s.sessions.Invalidate(c.GetString(sessionTokenKey))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (s *AuthService) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "consent-query-api"})
}

// RequireSession guards protected endpoints. The token travels as a bearer
// value in the Authorization header; on success the patient's email is bound
// into the request context for the remainder of that request.
func RequireSession(sessions session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized. Please log in."})
			return
		}

		sess, ok := sessions.Lookup(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid. Please log in again."})
			return
		}

		c.Set(patientEmailKey, sess.Email)
		c.Set(sessionTokenKey, token)
		c.Next()
	}
}
