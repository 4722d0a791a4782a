package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/models"
	"rural-voice-be/services"
	"rural-voice-be/store"
)

// IssueController exposes the lifecycle engine over HTTP. Handlers stay
// thin: decode, delegate, map the error kind.
type IssueController struct {
	engine *services.Engine
}

func NewIssueController(engine *services.Engine) *IssueController {
	return &IssueController{engine: engine}
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var input struct {
		Title       string           `json:"title" binding:"required,max=200"`
		Description string           `json:"description" binding:"required,max=1000"`
		Category    string           `json:"category" binding:"required"`
		Village     string           `json:"village,omitempty"`
		Location    *models.Location `json:"location,omitempty"`
		ImageURL    *string          `json:"imageUrl,omitempty"`
		AudioURL    *string          `json:"audioUrl,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		ImageURL:    input.ImageURL,
		AudioURL:    input.AudioURL,
	}
	if input.Village != "" {
		villageID, err := primitive.ObjectIDFromHex(input.Village)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid village ID"})
			return
		}
		in.VillageID = &villageID
	}

	issue, err := ic.engine.CreateIssue(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GetAllIssues handles retrieving issues with filtering and sorting
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	filter := store.IssueFilter{}

	if villageHex := c.Query("village"); villageHex != "" {
		villageID, err := primitive.ObjectIDFromHex(villageHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid village ID"})
			return
		}
		filter.Village = &villageID
	}
	if category := c.Query("category"); category != "" && category != "all" {
		cat := models.IssueCategory(category)
		filter.Category = &cat
	}
	if c.Query("timeRange") == "weekly" {
		since := time.Now().AddDate(0, 0, -7)
		filter.Since = &since
	}

	sort := store.IssueSort{ByVotes: c.Query("sort") == "top"}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			sort.Limit = limit
		}
	}

	issues, err := ic.engine.ListIssues(c.Request.Context(), filter, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	c.JSON(http.StatusOK, issues)
}

// GetIssue retrieves an issue by its ID
func (ic *IssueController) GetIssue(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	issue, err := ic.engine.GetIssue(c.Request.Context(), issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateStatus sets the issue's status label
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ic.engine.SetStatus(c.Request.Context(), actor, issueID, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// VoteOnIssue casts the actor's vote on an issue
func (ic *IssueController) VoteOnIssue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	issue, err := ic.engine.Vote(c.Request.Context(), actor, issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AddComment appends a comment to an issue
func (ic *IssueController) AddComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Text string `json:"text" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ic.engine.AddComment(c.Request.Context(), actor, issueID, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// ReplyToComment appends a reply under an existing comment
func (ic *IssueController) ReplyToComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Text string `json:"text" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ic.engine.ReplyToComment(c.Request.Context(), actor, issueID, c.Param("commentId"), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// AssignIssue sets the assignee and moves the issue to In Progress
func (ic *IssueController) AssignIssue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		AssignedTo string `json:"assignedTo" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assigneeID, err := primitive.ObjectIDFromHex(input.AssignedTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
		return
	}

	issue, err := ic.engine.AssignIssue(c.Request.Context(), actor, issueID, assigneeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AddProgressUpdate records a work-log entry, optionally with a status change
func (ic *IssueController) AddProgressUpdate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Description string  `json:"description" binding:"required,max=1000"`
		ImageURL    *string `json:"imageUrl,omitempty"`
		Status      string  `json:"status,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ic.engine.AddProgressUpdate(c.Request.Context(), actor, issueID, input.Description, input.ImageURL, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}
