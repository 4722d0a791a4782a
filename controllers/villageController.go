package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
	"rural-voice-be/services"
	"rural-voice-be/store"
)

// VillageController manages the administrative area records issues and
// users affiliate with.
type VillageController struct {
	villages store.VillageStore
	policy   services.Policy
}

func NewVillageController(villages store.VillageStore) *VillageController {
	return &VillageController{villages: villages, policy: services.DefaultPolicy()}
}

// CreateVillage registers a new administrative area
func (vc *VillageController) CreateVillage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := vc.policy.Allow(services.OpCreateVillage, actor.Role); err != nil {
		respondError(c, err)
		return
	}

	var input struct {
		Name     string   `json:"name" binding:"required,max=100"`
		District string   `json:"district" binding:"required,max=100"`
		State    string   `json:"state" binding:"required,max=100"`
		Wards    []string `json:"wards,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := vc.villages.GetByName(c.Request.Context(), input.Name); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Village already exists"})
		return
	} else if !apperr.IsNotFound(err) {
		respondError(c, err)
		return
	}

	now := time.Now()
	village := &models.Village{
		Name:      input.Name,
		District:  input.District,
		State:     input.State,
		Wards:     input.Wards,
		AdminID:   &actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := vc.villages.Insert(c.Request.Context(), village); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, village)
}

// GetVillages lists villages, optionally filtered by district
func (vc *VillageController) GetVillages(c *gin.Context) {
	villages, err := vc.villages.Find(c.Request.Context(), c.Query("district"))
	if err != nil {
		respondError(c, err)
		return
	}
	if villages == nil {
		villages = []models.Village{}
	}
	c.JSON(http.StatusOK, villages)
}
