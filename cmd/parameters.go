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

package cmd

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var (
	errMalformedURL     = errors.New("malformed URL")
	errMissingURLScheme = errors.New("missing URL scheme")
	errMissingURLHost   = errors.New("missing URL host")
	errMissingURLPort   = errors.New("missing URL port")
	errUnexpectedScheme = errors.New("unexpected URL scheme")
)

// urlParse checks that every endpoint is a URL the client can talk to:
// scheme://host[:port].
func urlParse(endpoints ...string) error {
	for _, endpoint := range endpoints {
		u, err := url.Parse(endpoint)
		switch {
		case err != nil:
			return errors.Wrap(errMalformedURL, endpoint)
		case u.Scheme == "":
			return errors.Wrap(errMissingURLScheme, endpoint)
		case u.Hostname() == "":
			return errors.Wrap(errMissingURLHost, endpoint)
		}
	}
	return nil
}

// urlParseNoSchemaRequired checks that every address can be bound by a
// listener: host:port without a scheme.
func urlParseNoSchemaRequired(addresses ...string) error {
	for _, addr := range addresses {
		if strings.Contains(addr, "://") {
			return errors.Wrap(errUnexpectedScheme, addr)
		}

		u, err := url.Parse("tcp://" + addr)
		switch {
		case err != nil:
			return errors.Wrap(errMalformedURL, addr)
		case u.Hostname() == "":
			return errors.Wrap(errMissingURLHost, addr)
		case u.Port() == "":
			return errors.Wrap(errMissingURLPort, addr)
		}
	}
	return nil
}
