/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package client

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/protocol"
)

var (
	// ErrUnauthorized is raised when the server rejects the API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is raised when the server keeps throttling adds after
	// the configured number of retries.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable is raised when the server cannot be reached.
	ErrUnavailable = errors.New("commitment service unavailable")
)

// APIError is a failed response of the commitment service. It unwraps to
// the commitment error of its code, so commitment.IsNotFound and friends
// work on errors returned by the client.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 401:
		return ErrUnauthorized
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.Code == protocol.ErrorNotFound:
		return commitment.ErrNotFound
	case e.Code == protocol.ErrorInvalidInput:
		return commitment.ErrInvalidInput
	case e.Code == protocol.ErrorTreeBuild:
		return commitment.ErrTreeBuild
	default:
		return commitment.ErrInternal
	}
}

func newAPIError(status int, contentType string, body []byte) *APIError {
	var res protocol.ErrorResponse
	if err := protocol.Decode(contentType, body, &res); err != nil || res.Error == "" {
		return &APIError{StatusCode: status, Message: string(body)}
	}
	return &APIError{StatusCode: status, Code: res.Error, Message: res.Message}
}
