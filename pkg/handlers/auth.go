package handlers

import (
	"net/http"
	"strings"

	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/Asaad942/VidFold/pkg/middleware"
	"github.com/Asaad942/VidFold/pkg/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newUserResponse(u *db.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Username: u.Username, Email: u.Email}
}

func (h *Handlers) LoginUser(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("LoginUser: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	req.Email = strings.ToLower(req.Email)

	user, err := h.Users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		log.Errorf("LoginUser: Error finding user by email: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Login failed", nil)
		return
	}
	if user == nil {
		log.Debugf("LoginUser: User with email '%s' not found.", req.Email)
		utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Debugf("LoginUser: Invalid password for user '%s'.", req.Email)
		utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		log.Errorf("LoginUser: Failed to generate JWT token for user %s: %v", user.Email, err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to generate authentication token", nil)
		return
	}

	log.Infof("LoginUser: User %s logged in.", user.Email)
	utils.ResponseWithSuccess(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  newUserResponse(user),
	})
}

func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("RegisterUser: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.Email = strings.ToLower(req.Email)

	existingUser, err := h.Users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		log.Errorf("RegisterUser: Error finding user by email '%s': %v", req.Email, err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}
	if existingUser != nil {
		log.Debugf("RegisterUser: User with email '%s' already exists.", req.Email)
		utils.ResponseWithError(c, http.StatusConflict, "User with email already exists", nil)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("RegisterUser: Error hashing password: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}

	createdUser, err := h.Users.CreateUser(c.Request.Context(), &db.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		log.Errorf("RegisterUser: Error creating user: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}

	token, err := h.Tokens.GenerateToken(createdUser.ID, createdUser.Email, createdUser.Username)
	if err != nil {
		log.Errorf("RegisterUser: Failed to generate JWT token for user %s: %v", createdUser.Email, err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to generate authentication token", nil)
		return
	}

	log.Infof("RegisterUser: User with ID '%s' created.", createdUser.ID.String())
	utils.ResponseWithSuccess(c, http.StatusCreated, "User created successfully", gin.H{
		"token": token,
		"user":  newUserResponse(createdUser),
	})
}

func (h *Handlers) GetProfile(c *gin.Context) {
	claims, exists := middleware.GetUserClaimsFromContext(c)
	if !exists {
		log.Error("GetProfile: User claims not found in context.")
		utils.ResponseWithError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Profile retrieved", gin.H{
		"user_id":  claims.UserID,
		"email":    claims.Email,
		"username": claims.Username,
	})
}

// DeleteUser removes the authenticated account with all of its videos.
func (h *Handlers) DeleteUser(c *gin.Context) {
	claims, exists := middleware.GetUserClaimsFromContext(c)
	if !exists {
		log.Error("DeleteUser: User claims not found in context.")
		utils.ResponseWithError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	userToDelete, err := h.Users.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Errorf("DeleteUser: Error finding user '%s': %v", claims.UserID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to find user account", nil)
		return
	}
	if userToDelete == nil {
		log.Warnf("DeleteUser: User '%s' from a valid token is not in the database.", claims.UserID.String())
		utils.ResponseWithError(c, http.StatusNotFound, "User account not found or already deleted", nil)
		return
	}

	if err := h.Users.DeleteUser(c.Request.Context(), userToDelete.ID); err != nil {
		log.Errorf("DeleteUser: Error deleting user '%s': %v", userToDelete.ID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to delete user account", nil)
		return
	}
	if h.Stores != nil {
		h.Stores.Drop(userToDelete.ID.String())
	}

	log.Infof("DeleteUser: User '%s' (email: '%s') deleted.", userToDelete.ID.String(), userToDelete.Email)
	utils.ResponseWithSuccess(c, http.StatusOK, "User account deleted successfully", nil)
}
