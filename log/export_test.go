package log

var PackagePath = packagePath
