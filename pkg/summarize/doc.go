/*
Package summarize is the reference step set: a word-budget summarizer built
from text tools (split, truncate, merge) and run as a stepflow graph.

The "option_b" graph splits the input on blank lines, keeps the first 50
words of every paragraph, merges them, and then alternates refine_summary and
check_length until the summary fits within MaxLength words.
*/
package summarize
