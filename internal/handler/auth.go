package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/user"
	"github.com/microcosm-cc/bluemonday"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"
)

type userCreator interface {
	Create(u user.User) error
}

type userByEmailGetter interface {
	GetByEmail(email string) (user.User, error)
}

type userByIDGetter interface {
	GetByID(id string) (user.User, error)
}

type userCreatorGetter interface {
	userCreator
	userByEmailGetter
}

// RegisterHandler creates a new account. Self-registration always gets the
// user role, only admins can mint admins.
func RegisterHandler(svr server.Server, userRepo userCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}{}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			svr.JSONError(w, http.StatusBadRequest, "name, email and password are required")
			return
		}
		if !svr.IsEmail(req.Email) {
			svr.JSONError(w, http.StatusBadRequest, "email is invalid")
			return
		}
		u, err := newUser(req.Name, req.Email, req.Password, user.RoleUser)
		if err != nil {
			svr.Log(err, "unable to build new user")
			svr.JSONError(w, http.StatusInternalServerError, "unable to register user")
			return
		}
		if err := userRepo.Create(u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				svr.JSONError(w, http.StatusConflict, "user with this email already exists")
				return
			}
			svr.Log(err, "unable to save new user")
			svr.JSONError(w, http.StatusInternalServerError, "unable to register user")
			return
		}
		svr.JSON(w, http.StatusCreated, map[string]interface{}{
			"message": "register success",
			"user":    publicUser(u),
		})
	}
}

// LoginHandler verifies the credentials and issues a bearer token.
func LoginHandler(svr server.Server, userRepo userByEmailGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}{}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			svr.JSONError(w, http.StatusBadRequest, "request is invalid")
			return
		}
		u, err := userRepo.GetByEmail(req.Email)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if err != nil {
			svr.Log(err, "unable to look up user by email")
			svr.JSONError(w, http.StatusInternalServerError, "unable to log in")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		expiry := time.Duration(svr.GetConfig().TokenExpiryHours) * time.Hour
		token, err := middleware.SignUserJWT(u, svr.GetJWTSigningKey(), expiry)
		if err != nil {
			svr.Log(err, "unable to sign jwt")
			svr.JSONError(w, http.StatusInternalServerError, "unable to log in")
			return
		}
		svr.JSON(w, http.StatusOK, map[string]interface{}{
			"token": token,
			"user":  publicUser(u),
		})
	}
}

// MeHandler returns the authenticated user's fresh document.
func MeHandler(svr server.Server, userRepo userByIDGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.GetUserFromJWT(r, svr.GetJWTSigningKey())
		if err != nil {
			svr.JSONError(w, http.StatusUnauthorized, "not authorized, token missing or invalid")
			return
		}
		u, err := userRepo.GetByID(claims.UserID)
		if err == sql.ErrNoRows {
			svr.JSONError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			svr.Log(err, "unable to look up user by id")
			svr.JSONError(w, http.StatusInternalServerError, "unable to fetch user")
			return
		}
		svr.JSON(w, http.StatusOK, profileResponse(u))
	}
}

func newUser(name, email, password, role string) (user.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}
	k, err := ksuid.NewRandom()
	if err != nil {
		return user.User{}, err
	}
	t := time.Now().UTC()
	return user.User{
		ID:        k.String(),
		Name:      bluemonday.StrictPolicy().Sanitize(name),
		Email:     email,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: t,
		UpdatedAt: t,
	}, nil
}

func publicUser(u user.User) map[string]interface{} {
	return map[string]interface{}{
		"_id":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}

func profileResponse(u user.User) user.User {
	if u.Bio == "" {
		u.Bio = user.DefaultBio
	}
	u.Password = ""
	return u
}
