/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package dataset

import (
	"context"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Open is a helper routine; it reads the dataset named by dataURL, which is
// either a path in fs or a gs://bucket/object URL.  Supported schemes are gs:
// and file:.  A nil storageClient is replaced by a default client when one
// is needed.
func Open(ctx context.Context, fs afero.Fs, storageClient *storage.Client,
	dataURL string) (*Samples, error) {

	u, err := url.Parse(dataURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing dataset URL")
	}

	switch u.Scheme {
	case "gs":
		if storageClient == nil {
			storageClient, err = storage.NewClient(ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "creating storage client")
			}
			defer storageClient.Close()
		}
		bucket := storageClient.Bucket(u.Host)
		upath := strings.TrimLeft(u.Path, "/")
		r, err := bucket.Object(upath).NewReader(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", dataURL)
		}
		defer r.Close()
		s, err := ReadCSV(r)
		return s, errors.Wrapf(err, "parsing %s", dataURL)

	case "", "file":
		f, err := fs.Open(u.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", u.Path)
		}
		defer f.Close()
		s, err := ReadCSV(f)
		return s, errors.Wrapf(err, "parsing %s", u.Path)

	default:
		return nil, errors.Errorf("unsupported scheme %s", u.Scheme)
	}
}
