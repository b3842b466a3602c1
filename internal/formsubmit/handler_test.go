package formsubmit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		fs.mu.Unlock()
		respond(w, r, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func jsonResponse(status int, body string) func(http.ResponseWriter, *http.Request, []byte) {
	return func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func fullFields() map[string]string {
	return map[string]string{
		"name":        "Ada Lovelace",
		"email":       "ada@example.com",
		"phone":       "+44 20 7946 0000",
		"dob":         "1815-12-10",
		"street":      " 12 St James's Square ",
		"city":        "London",
		"state":       "",
		"postal":      "SW1Y 4JH",
		"country":     "UK",
		"institution": "University of London",
		"student-id":  "S-1815",
		"message":     "<b>hello</b>",
	}
}

func submitAndWait(t *testing.T, h *Handler) *Submission {
	t.Helper()
	s, err := h.HandleSubmit(context.Background(), &Event{})
	require.NoError(t, err)
	<-s.Done()
	return s
}

func TestHandleSubmitPostsEveryField(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
	}{
		{name: "all_fields", fields: fullFields()},
		{name: "all_empty", fields: map[string]string{}},
		{name: "partial", fields: map[string]string{"name": "Grace", "student-id": "42"}},
	}

	for _, tCase := range cases {
		t.Run(tCase.name, func(t *testing.T) {
			srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"message":"ok"}`))
			doc := NewStaticDocument(tCase.fields)
			h, err := NewHandler(doc, srv.URL)
			require.NoError(t, err)

			submitAndWait(t, h)

			reqs := srv.recorded()
			require.Len(t, reqs, 1)
			require.Equal(t, http.MethodPost, reqs[0].Method)
			require.Equal(t, SubmitPath, reqs[0].Path)
			require.Equal(t, "application/json", reqs[0].ContentType)

			var got map[string]string
			require.NoError(t, json.Unmarshal(reqs[0].Body, &got))
			require.Len(t, got, len(FieldIDs))
			for _, id := range FieldIDs {
				value, ok := got[id]
				require.True(t, ok, id)
				require.Equal(t, tCase.fields[id], value, id)
			}
		})
	}
}

func TestAttachPreventsDefault(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"message":"ok"}`))
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)
	h.Attach(doc.Form(FormID))

	ev := doc.Form(FormID).Submit()
	require.True(t, ev.DefaultPrevented())

	h.Wait()
	require.Len(t, srv.recorded(), 1)
}

func TestHandleSubmitRedirect(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"redirect":"/thank-you"}`))
	doc := NewStaticDocument(fullFields())
	doc.SetTextContent(ResponseMessageID, "untouched")
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)

	s := submitAndWait(t, h)

	outcome, err := s.Result()
	require.NoError(t, err)
	require.Equal(t, Redirect("/thank-you"), outcome)
	require.Equal(t, []string{"/thank-you"}, doc.Navigations())
	require.Equal(t, "untouched", doc.TextContent(ResponseMessageID))
}

func TestHandleSubmitMessage(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"message":"Registration received"}`))
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)

	submitAndWait(t, h)

	require.Equal(t, "Registration received", doc.TextContent(ResponseMessageID))
	require.Empty(t, doc.Navigations())
}

func TestHandleSubmitRendersApplicationErrors(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusBadRequest, `{"message":"Name, email, and phone are required"}`))
	doc := NewStaticDocument(nil)
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)

	s := submitAndWait(t, h)

	_, err = s.Result()
	require.NoError(t, err)
	require.Equal(t, "Name, email, and phone are required", doc.TextContent(ResponseMessageID))
}

func TestHandleSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()

	var logs bytes.Buffer
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, origin, WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)

	s := submitAndWait(t, h)

	_, err = s.Result()
	require.Error(t, err)
	require.Equal(t, FallbackMessage, doc.TextContent(ResponseMessageID))
	require.Empty(t, doc.Navigations())
	require.Contains(t, logs.String(), "registration submit failed")
	require.Contains(t, logs.String(), s.ID)
}

func TestHandleSubmitLogsFailuresByDefault(t *testing.T) {
	var logs bytes.Buffer
	prev := diagnosticOutput
	diagnosticOutput = &logs
	t.Cleanup(func() { diagnosticOutput = prev })

	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()

	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, origin)
	require.NoError(t, err)

	s := submitAndWait(t, h)

	_, err = s.Result()
	require.Error(t, err)
	require.Equal(t, FallbackMessage, doc.TextContent(ResponseMessageID))
	require.Contains(t, logs.String(), "registration submit failed")
	require.Contains(t, logs.String(), `"level":"error"`)
	require.Contains(t, logs.String(), `"endpoint":"`+h.Endpoint()+`"`)
	require.Contains(t, logs.String(), `"error":"post `)
}

func TestHandleSubmitParseFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "html", body: "<html>Internal Server Error</html>"},
		{name: "empty", body: ""},
		{name: "null", body: "null"},
		{name: "truncated", body: `{"message":"ok"`},
	}

	for _, tCase := range cases {
		t.Run(tCase.name, func(t *testing.T) {
			srv := newFakeServer(t, jsonResponse(http.StatusInternalServerError, tCase.body))
			var logs bytes.Buffer
			doc := NewStaticDocument(fullFields())
			h, err := NewHandler(doc, srv.URL, WithLogger(zerolog.New(&logs)))
			require.NoError(t, err)

			submitAndWait(t, h)

			require.Equal(t, FallbackMessage, doc.TextContent(ResponseMessageID))
			require.NotEmpty(t, logs.String())
		})
	}
}

type failingPage struct {
	*StaticDocument
}

func (failingPage) Navigate(string) error {
	return errors.New("navigation blocked")
}

func TestHandleSubmitNavigationFailure(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"redirect":"/thank-you"}`))
	page := failingPage{NewStaticDocument(fullFields())}
	h, err := NewHandler(page, srv.URL)
	require.NoError(t, err)

	s := submitAndWait(t, h)

	_, err = s.Result()
	require.ErrorContains(t, err, "navigation blocked")
	require.Equal(t, FallbackMessage, page.TextContent(ResponseMessageID))
}

type panickingPage struct {
	*StaticDocument
}

func (panickingPage) Navigate(string) error {
	panic("boom")
}

func TestHandleSubmitRecoversPanics(t *testing.T) {
	srv := newFakeServer(t, jsonResponse(http.StatusOK, `{"redirect":"/thank-you"}`))
	page := panickingPage{NewStaticDocument(nil)}
	h, err := NewHandler(page, srv.URL)
	require.NoError(t, err)

	s := submitAndWait(t, h)

	_, err = s.Result()
	require.ErrorContains(t, err, "boom")
	require.Equal(t, FallbackMessage, page.TextContent(ResponseMessageID))
}

func TestRepeatedSubmitsReplaceText(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	srv := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n == 2 {
			_, _ = io.WriteString(w, "not json")
			return
		}
		_, _ = io.WriteString(w, `{"message":"attempt"}`)
	})
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)

	submitAndWait(t, h)
	require.Equal(t, "attempt", doc.TextContent(ResponseMessageID))

	submitAndWait(t, h)
	require.Equal(t, FallbackMessage, doc.TextContent(ResponseMessageID))

	submitAndWait(t, h)
	require.Equal(t, "attempt", doc.TextContent(ResponseMessageID))
}

func TestOverlappingSubmitsLastSettledWins(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, body []byte) {
		var payload map[string]string
		_ = json.Unmarshal(body, &payload)
		if payload["message"] == "first" {
			<-release
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": payload["message"]})
	})
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, srv.URL)
	require.NoError(t, err)

	doc.SetField("message", "first")
	first, err := h.HandleSubmit(context.Background(), &Event{})
	require.NoError(t, err)

	doc.SetField("message", "second")
	second, err := h.HandleSubmit(context.Background(), &Event{})
	require.NoError(t, err)
	<-second.Done()
	require.Equal(t, "second", doc.TextContent(ResponseMessageID))

	close(release)
	<-first.Done()
	require.Equal(t, "first", doc.TextContent(ResponseMessageID))
	require.Len(t, srv.recorded(), 2)
}

func TestInFlightGuard(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		once.Do(func() { <-release })
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})
	doc := NewStaticDocument(fullFields())
	h, err := NewHandler(doc, srv.URL, WithInFlightGuard())
	require.NoError(t, err)

	first, err := h.HandleSubmit(context.Background(), &Event{})
	require.NoError(t, err)

	ev := &Event{}
	_, err = h.HandleSubmit(context.Background(), ev)
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	require.True(t, ev.DefaultPrevented())

	close(release)
	<-first.Done()
	h.Wait()

	submitAndWait(t, h)
	require.Len(t, srv.recorded(), 2)
}

func TestNewHandlerValidation(t *testing.T) {
	_, err := NewHandler(nil, "http://localhost:8080")
	require.Error(t, err)

	_, err = NewHandler(NewStaticDocument(nil), "/relative")
	require.Error(t, err)

	h, err := NewHandler(NewStaticDocument(nil), "http://localhost:8080/register")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/submit", h.Endpoint())
}

func TestResolveLocation(t *testing.T) {
	got, err := ResolveLocation("http://localhost:8080/register", "/thank-you")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/thank-you", got)

	got, err = ResolveLocation("http://localhost:8080/register", "https://example.org/done")
	require.NoError(t, err)
	require.Equal(t, "https://example.org/done", got)
}
