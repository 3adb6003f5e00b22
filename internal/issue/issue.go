// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ReferenceNotFoundId Id = iota + 1
	InvalidReferenceId
	NoSearchResultsId
	NoDownloadId
	DownloadFailedId
	UnknownLengthId
	ExtractFailedId
	RateLimitedId
	GameDataNotFoundId
	PayloadNotFoundId
	InstallFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry: a markdown explanation of a failure class
	// plus links to further reading.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	referenceNotFoundIssue = &Issue{
		id: ReferenceNotFoundId,
		mdMsg: `
# Mod location not recognized!

The reference is not an existing directory, not a ` + "`.zip`" + ` or ` + "`.tar.gz`" + ` file,
and does not start with a known source prefix.

## Supported references
| Form | Meaning |
|---|---|
| ` + "`./MyMod`" + ` | local mod directory |
| ` + "`./MyMod.zip`" + ` | local archive |
| ` + "`url:https://host/file.zip`" + ` | direct download |
| ` + "`sd:1234`" + ` | SpaceDock mod id |
| ` + "`sds:kerbal engineer`" + ` | SpaceDock search |
| ` + "`gh:owner/repo[/ref]`" + ` | GitHub release or ref |
| ` + "`git:https://host/repo.git#ref`" + ` | git clone |`,
	}

	invalidReferenceIssue = &Issue{
		id: InvalidReferenceId,
		mdMsg: `
# Malformed mod reference!

A ` + "`gh:`" + ` reference takes either two segments (` + "`owner/repo`" + `, latest release)
or three (` + "`owner/repo/ref`" + `, source archive of a branch or tag).`,
	}

	noSearchResultsIssue = &Issue{
		id: NoSearchResultsId,
		mdMsg: `
# No mods matched your search!

## Things you can try:
- Use fewer or shorter words
- Search on the registry website and install by id with ` + "`sd:<id>`",
		extLinks: []HttpLink{"https://spacedock.info"},
	}

	noDownloadIssue = &Issue{
		id: NoDownloadId,
		mdMsg: `
# Nothing to download!

The registry entry has no published versions, or the GitHub repository has no
release with an attached asset.

## Things you can try:
- Install a specific ref instead: ` + "`gh:owner/repo/main`" + `
- Clone the repository: ` + "`git:https://github.com/owner/repo.git`",
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Download failed!

The server returned an error status or the transfer was interrupted.
Downloads are not retried.

## Things you can try:
- Check your network connection
- Re-run the same command`,
	}

	unknownLengthIssue = &Issue{
		id: UnknownLengthId,
		mdMsg: `
# Server did not report a download size!

kspmod refuses transfers without a declared length by default.

## Things you can try:
- Allow them in your config file:
~~~cue
download: allow_unknown_length: true
~~~
- Or for one run: ` + "`KSPMOD_DOWNLOAD_ALLOW_UNKNOWN_LENGTH=true kspmod ...`",
	}

	extractFailedIssue = &Issue{
		id: ExtractFailedId,
		mdMsg: `
# Could not extract the archive!

Only zip and gzip-compressed tar archives are supported. Archives whose entries
point outside the extraction directory are rejected.`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub API rate limit exceeded!

## Things you can try:
- Wait until the limit resets
- Export a token: ` + "`export GITHUB_TOKEN=...`",
		extLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	gameDataNotFoundIssue = &Issue{
		id: GameDataNotFoundId,
		mdMsg: `
# KSP GameData folder not found!

None of the configured destinations exist.

## Things you can try:
- Pass it explicitly: ` + "`kspmod --dest /path/to/KSP/GameData ...`" + `
- Add it to your config file:
~~~cue
destinations: ["/path/to/KSP/GameData"]
~~~`,
	}

	payloadNotFoundIssue = &Issue{
		id: PayloadNotFoundId,
		mdMsg: `
# The mod has no GameData folder!

The mod archive was extracted but no directory named like the payload folder
was found inside it. You were asked for a location inside the mod instead;
a wrong answer installs the wrong files.`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Could not copy the mod into GameData!

Existing entries with the same name are removed before the copy, so a failure
halfway can leave that mod partially installed.

## Things you can try:
- Close the game and any file browser showing GameData
- Re-run the install`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Show the effective configuration: ` + "`kspmod config show`" + `
- Write a fresh default file: ` + "`kspmod config init`",
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

kspmod cannot write to the destination folder.

## Things you can try:
- Check the ownership of the GameData folder
- On Windows, avoid installing KSP under ` + "`Program Files`",
	}

	issues = map[Id]*Issue{
		referenceNotFoundIssue.Id(): referenceNotFoundIssue,
		invalidReferenceIssue.Id():  invalidReferenceIssue,
		noSearchResultsIssue.Id():   noSearchResultsIssue,
		noDownloadIssue.Id():        noDownloadIssue,
		downloadFailedIssue.Id():    downloadFailedIssue,
		unknownLengthIssue.Id():     unknownLengthIssue,
		extractFailedIssue.Id():     extractFailedIssue,
		rateLimitedIssue.Id():       rateLimitedIssue,
		gameDataNotFoundIssue.Id():  gameDataNotFoundIssue,
		payloadNotFoundIssue.Id():   payloadNotFoundIssue,
		installFailedIssue.Id():     installFailedIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the markdown message, followed by a "See also" list when
// the issue has links, with the given glamour style ("dark", "light", "notty"...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id - b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
