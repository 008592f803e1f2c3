// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// MaxImageSize caps an attached image file.
const MaxImageSize = 8 * 1024 * 1024

// ErrImageTooLarge is returned by ReadImage for files over MaxImageSize.
var ErrImageTooLarge = errors.New("image too large")

// ReadImage builds an Input carrying the image at path plus text.
func ReadImage(fs afero.Fs, path, text string) (Input, error) {
	if path == "" {
		return Input{}, errors.New("image path is required")
	}
	info, err := fs.Stat(path)
	if err != nil {
		return Input{}, err
	}
	if info.Size() > MaxImageSize {
		return Input{}, fmt.Errorf("%w: %s is over %d MiB", ErrImageTooLarge, path, MaxImageSize>>20)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Input{}, err
	}
	return Input{Text: text, Image: base64.StdEncoding.EncodeToString(data)}, nil
}
