// Package compiler provides a lexer, parser, resolver, type checker and
// code generator for a small subset of C, targeting x86-64 assembly in AT&T
// syntax under the System V AMD64 ABI.
//
// Pipeline: C source → Lex → Parse → Resolve → Check → Generate → assembly text
package compiler
