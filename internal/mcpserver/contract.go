package mcpserver

// PostFormatContract describes the post layout that LLM consumers should
// follow when writing or editing posts.
const PostFormatContract = `# Blog Post Format

Every post is a directory under the posts root containing an index.md file
and an optional assets/ folder. Posts are mirrored to GitHub issues by the
sync_posts tool.

## Structure

` + "```" + `
<posts-root>/
  my-first-post/
    index.md
    assets/
      diagram.png
` + "```" + `

` + "```" + `markdown
---
title: My first post
date: 2025-01-20
label: golang
id: a1b2c3
---

Body text in Markdown.

![diagram](assets/diagram.png)
` + "```" + `

## Rules

1. **Front matter is mandatory.** A line containing only ` + "`---`" + ` opens and
   closes it. Each field is one ` + "`key: value`" + ` line; order does not matter.
2. **id** is exactly six lowercase letters or digits and never changes. It ties
   the post to its issue. Two posts must never share an id.
3. **title** and **date** (` + "`YYYY-MM-DD`" + `) are required. Posts missing any of
   id, title or date are skipped by sync.
4. **label** is optional; a comma-separated **labels** field may list more.
   Unknown labels are created on the repository.
5. Prefer the create_post tool: it picks the directory name, date and id.
6. Reference assets with relative ` + "`assets/...`" + ` paths. Sync rewrites them to
   absolute raw URLs; do not write those URLs yourself.
7. Upload images with the upload_asset tool. It returns a ready-to-paste
   ` + "`markdown`" + ` field.
8. Deleting a post directory closes its issue on the next sync.
`
