package quill

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/256dpi/serve"
	"github.com/256dpi/xo"
	"github.com/tidwall/gjson"

	"github.com/256dpi/quill/coal"
)

// A Tester provides facilities to test the blog API.
type Tester struct {
	*coal.Tester

	// The blog to be tested.
	Blog *Blog

	// The handler to be tested.
	Handler http.Handler

	// The header to be set on all requests.
	Header map[string]string
}

// NewTester returns a new tester for the provided blog.
func NewTester(blog *Blog) *Tester {
	return &Tester{
		Tester:  coal.NewTester(blog.Store, UsersCollection, PostsCollection, CommentsCollection, ErrorLogsCollection),
		Blog:    blog,
		Handler: serve.Compose(xo.RootHandler(), NewAPI(blog)),
		Header:  make(map[string]string),
	}
}

// Clean will remove the documents of all collections and reset the header
// map.
func (t *Tester) Clean() {
	// clean collections
	t.Tester.Clean()

	// reset header
	t.Header = make(map[string]string)
}

// Login will log in the user with the provided credentials and set the
// returned tokens on the header map.
func (t *Tester) Login(email, password string) {
	// prepare payload
	payload := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)

	// log in
	t.Request("POST", "/auth/login", payload, func(r *httptest.ResponseRecorder, rq *http.Request) {
		if r.Code != http.StatusOK {
			panic(t.DebugRequest(rq, r))
		}

		// set access token
		t.Header["Authorization"] = "Bearer " + gjson.Get(r.Body.String(), "access_token").String()

		// set refresh token
		for _, cookie := range r.Result().Cookies() {
			if cookie.Name == t.Blog.Config.RefreshCookie {
				t.Header["Cookie"] = cookie.Name + "=" + cookie.Value
			}
		}
	})
}

// Logout will remove the tokens from the header map.
func (t *Tester) Logout() {
	delete(t.Header, "Authorization")
	delete(t.Header, "Cookie")
}

// Request will run the specified request against the handler.
func (t *Tester) Request(method, path string, payload string, callback func(*httptest.ResponseRecorder, *http.Request)) {
	t.request(method, path, "application/json", strings.NewReader(payload), callback)
}

// Upload will run a multipart request that uploads the provided data as the
// image form file.
func (t *Tester) Upload(method, path, filename, mediaType string, data []byte, callback func(*httptest.ResponseRecorder, *http.Request)) {
	// prepare body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// write file
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="image"; filename=%q`, filename)},
		"Content-Type":        {mediaType},
	})
	if err != nil {
		panic(err)
	}
	_, err = part.Write(data)
	if err != nil {
		panic(err)
	}

	// close writer
	err = writer.Close()
	if err != nil {
		panic(err)
	}

	t.request(method, path, writer.FormDataContentType(), &body, callback)
}

func (t *Tester) request(method, path, contentType string, body io.Reader, callback func(*httptest.ResponseRecorder, *http.Request)) {
	// create request
	request, err := http.NewRequest(method, "/"+strings.Trim(path, "/"), body)
	if err != nil {
		panic(err)
	}

	// prepare recorder
	recorder := httptest.NewRecorder()

	// add content type if required
	if method == "POST" || method == "PUT" || method == "PATCH" || method == "DELETE" {
		request.Header.Set("Content-Type", contentType)
	}

	// set custom headers
	for k, v := range t.Header {
		request.Header.Set(k, v)
	}

	// serve request
	t.Handler.ServeHTTP(recorder, request)

	// run callback
	callback(recorder, request)
}

// DebugRequest returns a string of information to debug requests.
func (t *Tester) DebugRequest(r *http.Request, rr *httptest.ResponseRecorder) string {
	return fmt.Sprintf(`
	URL:    %s
	Header: %s
	Status: %d
	Header: %v
	Body:   %v`, r.URL.String(), r.Header, rr.Code, rr.Header(), rr.Body.String())
}
