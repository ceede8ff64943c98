package mcpserver

const fence = "```"

// PostFormatContract describes the post source format the compiler accepts.
const PostFormatContract = `# Quire Post Format

A post is one Markdown (` + "`.md`" + `) or MDX (` + "`.mdx`" + `) file in the posts directory.

## Layout

- ` + "`hello-world.md`" + ` is the post with slug ` + "`hello-world`" + `.
- ` + "`hello-world/index.md`" + ` is the same slug; images and other files next to it
  are served from ` + "`/api/posts/hello-world/assets/<file>`" + `.
- A directory wins over a file of the same name.
- Only the top level of the posts directory is listed.

## Frontmatter

` + fence + `markdown
---
title: Human-readable title     # REQUIRED string
createdAt: "2024-03-01"         # REQUIRED string, ISO-8601 date or datetime
description: One-line summary   # OPTIONAL string
excerpt: Teaser for listings    # OPTIONAL string
updatedAt: "2024-03-05"         # OPTIONAL string
draft: false                    # OPTIONAL bool; drafts can be hidden from listings
---
` + fence + `

Quote dates: YAML turns bare dates into timestamps, and the fields must be
strings. A post whose frontmatter does not match is rejected with the slug
and the attributes that were received.

## Body

GitHub-flavoured Markdown: tables, task lists, strikethrough, autolinks.

- Relative links (` + "`./other-post`" + `) are rewritten against the site base URL.
- Fenced code with a language is highlighted. Meta after the language sets
  options: an info string of ` + "`js lines=[1,3-5] filename=app.js`" + ` marks lines
  1 and 3 to 5 and adds ` + "`data-filename`" + `; ` + "`js [2]`" + ` is shorthand for
  ` + "`lines=[2]`" + `.
- A paragraph holding only a bare URL (YouTube, CodeSandbox, Vimeo, X) is
  replaced by the embedded player.
- Headings get ids prefixed with ` + "`md-`" + `.

## Example

` + fence + "`" + `markdown
---
title: Shipping the search index
createdAt: "2024-03-01"
description: How posts became searchable.
---

# Shipping the search index

- [x] write the indexer
- [ ] tune ranking

` + fence + `go lines=[2]
func main() {
	fmt.Println("hi")
}
` + fence + `

https://www.youtube.com/watch?v=dQw4w9WgXcQ
` + fence + "`" + `
`
