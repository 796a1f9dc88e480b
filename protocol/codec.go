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

package protocol

import (
	"encoding/json"
	"mime"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

var cborEnc, cborDec = func() (cbor.EncMode, cbor.DecMode) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return enc, dec
}()

// Encode serializes v in the given content type, JSON unless CBOR is
// requested.
func Encode(contentType string, v interface{}) ([]byte, error) {
	if MediaType(contentType) == ContentTypeCBOR {
		return cborEnc.Marshal(v)
	}
	return json.Marshal(v)
}

// Decode parses data in the given content type into v.
func Decode(contentType string, data []byte, v interface{}) error {
	if MediaType(contentType) == ContentTypeCBOR {
		return cborDec.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// MediaType returns the media type of a Content-Type header value without
// its parameters. Unparseable or empty values are treated as JSON.
func MediaType(contentType string) string {
	if contentType == "" {
		return ContentTypeJSON
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ContentTypeJSON
	}
	return mt
}

// Negotiate picks the response content type for an Accept header: CBOR if
// the client lists it, JSON otherwise.
func Negotiate(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		if MediaType(strings.TrimSpace(part)) == ContentTypeCBOR {
			return ContentTypeCBOR
		}
	}
	return ContentTypeJSON
}
