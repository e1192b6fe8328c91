// Package mocktest runs an HTTP mock inside a Go test.
//
// Each Reply adds one response to its route; responses are handed out in
// order, one per request. Wait blocks until every response has been used and
// returns the recorded requests:
//
//	func TestClient(t *testing.T) {
//	    mock := mocktest.New(t)
//
//	    mock.Mock("GET", "/users/123").
//	        WithJSON(map[string]string{"id": "123"}).
//	        Reply()
//	    mock.Mock("POST", "/users").
//	        WithStatus(201).
//	        Twice()
//
//	    url := mock.Start()
//	    runClient(t, url)
//
//	    mock.Wait()
//	    mock.AssertCalledTimes(t, "POST", "/users", 2)
//	    mock.Requests()[0].AssertHeader(t, "Accept", "application/json")
//	}
//
// A route declared with Expect and no replies accepts one request and answers
// 404. Stop, registered as a test cleanup, aborts a run that is still waiting.
package mocktest
