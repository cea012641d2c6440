package kanban

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Gender of a user.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Status is the board column of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Label tags a task.
type Label string

const (
	LabelBug           Label = "BUG"
	LabelFeature       Label = "FEATURE"
	LabelEnhancement   Label = "ENHANCEMENT"
	LabelDocumentation Label = "DOCUMENTATION"
	LabelRefactor      Label = "REFACTOR"
)

// Task is a card on the board.
type Task struct {
	ID             int64      `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	Description    *string    `json:"description" yaml:"description,omitempty"`
	Status         Status     `json:"status" yaml:"status"`
	Labels         []Label    `json:"labels" yaml:"labels"`
	CreatorUserID  int64      `json:"creatorUserId" yaml:"creatorUserId"`
	AssigneeUserID *int64     `json:"assigneeUserId" yaml:"assigneeUserId,omitempty"`
	DueAt          *time.Time `json:"dueAt" yaml:"dueAt,omitempty"`
	Position       *float64   `json:"position" yaml:"position,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Comment belongs to a task.
type Comment struct {
	ID           int64     `json:"id" yaml:"id"`
	TaskID       int64     `json:"taskId" yaml:"taskId"`
	AuthorUserID int64     `json:"authorUserId" yaml:"authorUserId"`
	Message      string    `json:"message" yaml:"message"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Reply answers a comment.
type Reply struct {
	ID           int64     `json:"id" yaml:"id"`
	CommentID    int64     `json:"commentId" yaml:"commentId"`
	AuthorUserID int64     `json:"authorUserId" yaml:"authorUserId"`
	Message      string    `json:"message" yaml:"message"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// User is a board member.
type User struct {
	ID        int64               `json:"id" yaml:"id"`
	FirstName string              `json:"firstName" yaml:"firstName"`
	LastName  string              `json:"lastName" yaml:"lastName"`
	Username  string              `json:"username" yaml:"username"`
	Email     openapi_types.Email `json:"email" yaml:"email"`
	Gender    Gender              `json:"gender" yaml:"gender"`
	ImageID   *string             `json:"imageId" yaml:"imageId,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Content          []T   `json:"content" yaml:"content"`
	TotalElements    int64 `json:"totalElements" yaml:"totalElements"`
	TotalPages       int   `json:"totalPages" yaml:"totalPages"`
	Number           int   `json:"number" yaml:"number"`
	Size             int   `json:"size" yaml:"size"`
	NumberOfElements int   `json:"numberOfElements" yaml:"numberOfElements"`
	First            bool  `json:"first" yaml:"first"`
	Last             bool  `json:"last" yaml:"last"`
	Empty            bool  `json:"empty" yaml:"empty"`
}

// LoginRequest authenticates by username or email.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// RegisterRequest creates an account and starts a session.
type RegisterRequest struct {
	Username  string              `json:"username" validate:"required"`
	Password  string              `json:"password" validate:"required"`
	Email     openapi_types.Email `json:"email" validate:"required,email"`
	FirstName string              `json:"firstName" validate:"required"`
	LastName  string              `json:"lastName" validate:"required"`
	Gender    Gender              `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
}

// TaskRequest creates or replaces a task.
type TaskRequest struct {
	Title          string     `json:"title" validate:"required"`
	Description    *string    `json:"description,omitempty"`
	Status         Status     `json:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
	Labels         []Label    `json:"labels,omitempty" validate:"dive,oneof=BUG FEATURE ENHANCEMENT DOCUMENTATION REFACTOR"`
	AssigneeUserID *int64     `json:"assigneeUserId,omitempty"`
	DueAt          *time.Time `json:"dueAt,omitempty"`
	Position       *float64   `json:"position,omitempty"`
}

// CommentCreateRequest adds a comment to a task.
type CommentCreateRequest struct {
	TaskID       int64  `json:"taskId" validate:"required"`
	AuthorUserID int64  `json:"authorUserId" validate:"required"`
	Message      string `json:"message" validate:"required"`
}

// ReplyCreateRequest adds a reply to a comment.
type ReplyCreateRequest struct {
	CommentID    int64  `json:"commentId" validate:"required"`
	AuthorUserID int64  `json:"authorUserId" validate:"required"`
	Message      string `json:"message" validate:"required"`
}

// MessageUpdateRequest replaces the text of a comment or reply.
type MessageUpdateRequest struct {
	Message string `json:"message" validate:"required"`
}

// UserUpdateRequest changes profile fields. Nil fields are left unchanged.
type UserUpdateRequest struct {
	Email     *openapi_types.Email `json:"email,omitempty" validate:"omitempty,email"`
	FirstName *string              `json:"firstName,omitempty"`
	LastName  *string              `json:"lastName,omitempty"`
	Gender    *Gender              `json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	ImageID   *string              `json:"imageId,omitempty"`
}

// ListUsersParams selects a page of users. Zero values use the server defaults.
type ListUsersParams struct {
	Page *int
	Size *int
	// Sort is "property" or "property,asc|desc".
	Sort *string
}
