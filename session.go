package cafematch

import searchuc "github.com/kailas-cloud/cafematch/internal/usecase/search"

// Session debounces live input and keeps the results of the latest search.
// It is safe for concurrent use.
type Session struct {
	engine *searchuc.Engine
}

// SetQuery records live input. Blank input clears the session.
func (s *Session) SetQuery(text string) { s.engine.SetQuery(text) }

// Submit searches text immediately, skipping the debounce.
func (s *Session) Submit(text string) { s.engine.Submit(text) }

// Clear drops the query and the results.
func (s *Session) Clear() { s.engine.Clear() }

// Results returns the results of the latest completed search.
func (s *Session) Results() Results {
	return fromResultSet(s.engine.Results())
}

// Score returns the display score of id in the current results, or 0.
func (s *Session) Score(id int) float64 { return s.engine.Score(id) }

// Status returns the current phase.
func (s *Session) Status() Status { return s.engine.Status() }

// Err returns the kind of error of the latest search, or "" on success.
func (s *Session) Err() ErrorKind { return s.engine.Err() }

// Wait blocks until every started search has finished. A pending debounce
// is not waited for.
func (s *Session) Wait() { s.engine.Wait() }

// Close stops the session. Further input is ignored.
func (s *Session) Close() { s.engine.Close() }
