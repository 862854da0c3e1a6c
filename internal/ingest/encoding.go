// Copyright 2025 The R-Lake Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ingest profiles canonical CSV artifacts: charset and
// delimiter detection, column type inference, and quality reporting.
package ingest

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/saintfish/chardet"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// sniffLen bounds how much of the file the charset detector reads.
const sniffLen = 10 * 1024

// minConfidence is the detector confidence below which we fall back
// to UTF-8.
const minConfidence = 70

// DetectEncoding sniffs the charset of the named file from its leading
// bytes. Detection failures and low-confidence results fall back to
// UTF-8.
func DetectEncoding(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", errors.WithStack(err)
	}
	if n == 0 {
		return "UTF-8", nil
	}

	res, err := chardet.NewTextDetector().DetectBest(buf[:n])
	if err != nil || res.Confidence < minConfidence {
		log.Debugf("charset detection inconclusive for %s; assuming UTF-8", path)
		return "UTF-8", nil
	}
	return res.Charset, nil
}

// DecodeReader wraps r so that its contents are presented as UTF-8.
// Unknown charsets pass through unchanged.
func DecodeReader(r io.Reader, charset string) io.Reader {
	switch strings.ToLower(charset) {
	case "", "utf-8", "us-ascii", "ascii":
		return r
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		log.Warnf("no decoder for charset %q; reading bytes as-is", charset)
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}
