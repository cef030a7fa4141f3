// Copyright 2025 Poiesic Systems
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

package ai

import "errors"

var (
	// ErrConnection indicates the AI backend could not be reached.
	ErrConnection = errors.New("could not connect to AI backend")

	// ErrUpstreamFailure indicates the AI backend returned an error or an unusable response.
	ErrUpstreamFailure = errors.New("AI backend call failed")

	// ErrNoJSON indicates a model response contained no JSON object.
	ErrNoJSON = errors.New("no JSON object in response")
)
