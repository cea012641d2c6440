package kanban

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

const (
	usersPath = "/api/v1/users"
	// ProfileImageField is the multipart field carrying an uploaded profile image.
	ProfileImageField = "file"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UserService manages users and their profile images.
type UserService struct {
	api API
}

// NewUserService creates a UserService.
func NewUserService(api API) *UserService {
	return &UserService{api: api}
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, params ListUsersParams) (*Page[User], error) {
	query := url.Values{}
	if params.Page != nil {
		if err := addQueryParam(query, "page", *params.Page); err != nil {
			return nil, err
		}
	}
	if params.Size != nil {
		if err := addQueryParam(query, "size", *params.Size); err != nil {
			return nil, err
		}
	}
	if params.Sort != nil {
		if err := addQueryParam(query, "sort", *params.Sort); err != nil {
			return nil, err
		}
	}

	var page Page[User]
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: usersPath, Query: query}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*User, error) {
	path, err := itemPath(usersPath, id)
	if err != nil {
		return nil, err
	}

	var user User
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update changes the profile fields set in req.
func (s *UserService) Update(ctx context.Context, id int64, req UserUpdateRequest) (*User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	path, err := itemPath(usersPath, id)
	if err != nil {
		return nil, err
	}

	var user User
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: path, Body: req}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return deleteItem(ctx, s.api, usersPath, id)
}

// UploadProfileImage sends file as the user's profile image.
func (s *UserService) UploadProfileImage(ctx context.Context, id int64, file openapi_types.File) error {
	data, err := file.Bytes()
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return apiclient.NewValidationError("profile image is empty")
	}

	path, err := itemPath(usersPath, id)
	if err != nil {
		return err
	}

	// The body is buffered so the dispatcher can resend it after a refresh.
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		ProfileImageField, quoteEscaper.Replace(file.Filename())))
	header.Set("Content-Type", http.DetectContentType(data))
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}

	return s.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        path + "/profile-image",
		RawBody:     body.Bytes(),
		ContentType: writer.FormDataContentType(),
	}, nil)
}

// ProfileImage downloads the user's profile image and its content type.
func (s *UserService) ProfileImage(ctx context.Context, id int64) ([]byte, string, error) {
	path, err := itemPath(usersPath, id)
	if err != nil {
		return nil, "", err
	}
	return s.api.Download(ctx, apiclient.Request{Method: http.MethodGet, Path: path + "/profile-image"})
}
