// SPDX-License-Identifier: MPL-2.0

// Package payload finds the directory inside a mod that holds the files to
// install, normally a folder named GameData somewhere in the mod's tree.
//
// Discovery order follows the directory walk (entries are visited in the
// order fs.ReadDir returns them) and is not sorted afterwards. Callers that
// need a stable order must sort the result themselves.
package payload
