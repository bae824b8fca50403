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

// Package retry runs operations under bounded, context-aware retry policies.
//
// Three policies cover the module's needs: Fixed for client construction and
// upserts, Exponential, and ExponentialJitter for embedding batches. Any policy
// can be narrowed with If so that permanent errors fail fast.
//
//	err := retry.Do(ctx, retry.Fixed(3, 2*time.Second).If(core.IsTransient), func() error {
//	    return client.Upsert(ctx, name, points, true)
//	})
package retry
