package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sustainboard/board/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		if err := statusError(res.StatusCode); err != nil {
			return fmt.Errorf("%w: %v request to endpoint %v, content '%v'", err, r.method, r.endpoint, w.Body.String())
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil && res.StatusCode != http.StatusNoContent {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

// DoRaw executes the request and copies the raw response body into out,
// for endpoints that do not return json.
func (r *httpTestRequest) DoRaw(out io.Writer) error {
	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		if err := statusError(res.StatusCode); err != nil {
			return fmt.Errorf("%w: %v request to endpoint %v", err, r.method, r.endpoint)
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d", r.method, r.endpoint, res.StatusCode)
	}

	_, err := io.Copy(out, res.Body)
	return err
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
	profileId string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Put(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "PUT", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResult struct {
	UserId      string `json:"userId"`
	ProfileId   string `json:"profileId"`
	AccessToken string `json:"accessToken"`
}

func (c *client) register(name, email, password, registrationCode string) (loginInfo, error) {
	body := map[string]string{
		"name": name, "email": email, "password": password, "registrationCode": registrationCode,
	}

	var res registerResult
	err := c.Post("/auth/register").Json(body).Do(&res)
	if err != nil {
		return loginInfo{}, err
	}

	c.authToken = res.AccessToken
	c.userId = res.UserId
	c.profileId = res.ProfileId

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Post("/auth/login").Json(login).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["accessToken"]
	c.userId = res["userId"]

	return nil
}

func (c *client) createAdmin(name, email, password, masterPassword string) error {
	body := map[string]string{
		"name": name, "email": email, "password": password, "masterPassword": masterPassword,
	}

	var res registerResult
	err := c.Post("/users/admin/create").Json(body).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.AccessToken
	c.userId = res.UserId
	c.profileId = res.ProfileId

	return nil
}

func (c *client) listUsers() ([]services.UserInfo, error) {
	var users []services.UserInfo
	err := c.Get("/users/admin/all").Do(&users)
	return users, err
}

func (c *client) deleteUser(userId string) error {
	return c.Delete(fmt.Sprintf("/users/admin/%v", userId)).Do(nil)
}

func (c *client) createProject(title, description string) (services.ProjectInfo, error) {
	var project services.ProjectInfo
	err := c.Post("/projects").Json(map[string]string{"title": title, "description": description}).Do(&project)
	return project, err
}

func (c *client) listProjects() ([]services.ProjectInfo, error) {
	var projects []services.ProjectInfo
	err := c.Get("/projects").Do(&projects)
	return projects, err
}

func (c *client) getProject(projectId uuid.UUID) (services.ProjectInfo, error) {
	var project services.ProjectInfo
	err := c.Get(fmt.Sprintf("/projects/%v", projectId)).Do(&project)
	return project, err
}

func (c *client) deleteProject(projectId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/projects/%v", projectId)).Do(nil)
}

func (c *client) addCollaborator(projectId uuid.UUID, profileId, role string) error {
	body := map[string]string{"profileId": profileId, "role": role}
	return c.Post(fmt.Sprintf("/projects/%v/collaborators", projectId)).Json(body).Do(nil)
}

func (c *client) removeCollaborator(projectId uuid.UUID, profileId string) error {
	return c.Delete(fmt.Sprintf("/projects/%v/collaborators/%v", projectId, profileId)).Do(nil)
}

func (c *client) listCollaborators(projectId uuid.UUID) ([]services.CollaboratorInfo, error) {
	var collaborators []services.CollaboratorInfo
	err := c.Get(fmt.Sprintf("/projects/%v/collaborators", projectId)).Do(&collaborators)
	return collaborators, err
}

type impactParams struct {
	ProjectId    uuid.UUID `json:"projectId"`
	SectionType  string    `json:"sectionType"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Score        int       `json:"score"`
	Dimension    string    `json:"dimension"`
	RelationType string    `json:"relationType"`
	Sdgs         []int     `json:"sdgs"`
}

func (c *client) createImpact(params impactParams) (services.ImpactInfo, error) {
	var impact services.ImpactInfo
	err := c.Post("/impacts").Json(params).Do(&impact)
	return impact, err
}

func (c *client) listImpacts(projectId uuid.UUID) ([]services.ImpactInfo, error) {
	var impacts []services.ImpactInfo
	err := c.Get(fmt.Sprintf("/impacts?projectId=%v", projectId)).Do(&impacts)
	return impacts, err
}

func (c *client) deleteImpact(impactId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/impacts/%v", impactId)).Do(nil)
}

func (c *client) projectAnalysis(projectId uuid.UUID) (services.ProjectAnalysis, error) {
	var analysis services.ProjectAnalysis
	err := c.Get(fmt.Sprintf("/projects/%v/analysis", projectId)).Do(&analysis)
	return analysis, err
}
