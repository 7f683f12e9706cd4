package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// Register creates an employee or HR account. HR accounts start with a
// zero package limit; capacity is granted only by a completed payment.
func Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		Role            string `json:"role"`
		DateOfBirth     string `json:"dateOfBirth,omitempty"`
		CompanyName     string `json:"companyName,omitempty"`
		CompanyLogo     string `json:"companyLogo,omitempty"`
		SelectedPackage string `json:"selectedPackage,omitempty"`
	}

	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload: "+err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	if len(req.Password) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if req.Role != models.RoleHR && req.Role != models.RoleEmployee {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be hr or employee")
		return
	}
	if req.Role == models.RoleHR && req.CompanyName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Company name is required for HR accounts")
		return
	}
	if req.Role == models.RoleHR && req.SelectedPackage != "" {
		if _, ok := models.PackageByID(req.SelectedPackage); !ok {
			utils.RespondWithError(w, http.StatusBadRequest, "Unknown package: "+req.SelectedPackage)
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("password hashing failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		DateOfBirth:  req.DateOfBirth,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Role == models.RoleHR {
		user.CompanyName = req.CompanyName
		user.CompanyLogo = req.CompanyLogo
		user.SelectedPackage = req.SelectedPackage
		user.PackageLimit = 0
		user.CurrentEmployees = 0
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := userCollection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		log.Error().Err(err).Msg("user insert failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	userID := result.InsertedID.(primitive.ObjectID).Hex()

	token, err := utils.GenerateJWT(userID, user.Name, user.Email, user.Role)
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Account created but token generation failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully",
		"token":   token,
		"user": map[string]string{
			"id":    userID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err := userCollection.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Name, user.Email, user.Role)
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user": map[string]string{
			"id":    user.ID.Hex(),
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// GetCurrentUser returns the authenticated user's profile, including the
// capacity counters for HR accounts.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": c.ID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}

// UpdateProfile lets a user change their own display fields. Capacity
// counters and role are never writable here.
func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Name        string `json:"name,omitempty"`
		DateOfBirth string `json:"dateOfBirth,omitempty"`
		CompanyName string `json:"companyName,omitempty"`
		CompanyLogo string `json:"companyLogo,omitempty"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	update := bson.M{}
	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.DateOfBirth != "" {
		update["dateOfBirth"] = req.DateOfBirth
	}
	if c.Role == models.RoleHR {
		if req.CompanyName != "" {
			update["companyName"] = req.CompanyName
		}
		if req.CompanyLogo != "" {
			update["companyLogo"] = req.CompanyLogo
		}
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, err := userCollection.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": update})
	if err != nil {
		log.Error().Err(err).Msg("profile update failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}
