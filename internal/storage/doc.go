/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists templates. Template files are written
// transactionally next to a backups folder of timestamped copies and are
// validated against an embedded JSON schema when read. A Library keeps many
// templates, their thumbnails and a journal of editing checkpoints in an
// embedded SQLite database; PGRepository offers the same Repository on a
// shared Postgres server.
package storage
